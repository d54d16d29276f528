// Property commands: list, add, update and delete.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mesh-intelligence/estates/internal/view"
	"github.com/mesh-intelligence/estates/pkg/types"
)

func (a *app) newPropertyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "property",
		Aliases: []string{"prop"},
		Short:   "Manage property listings",
	}
	cmd.AddCommand(a.newPropertyListCmd())
	cmd.AddCommand(a.newPropertyAddCmd())
	cmd.AddCommand(a.newPropertyUpdateCmd())
	cmd.AddCommand(a.newPropertyDeleteCmd())
	return cmd
}

// viewFlags are the filter, sort and page inputs of property list.
type viewFlags struct {
	filters view.Filters
	sort    string
	page    int
}

func (a *app) newPropertyListCmd() *cobra.Command {
	var vf viewFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List properties through the filtered, sorted view",
		Long: `List shows one page of properties. Filters are combined with AND; the
general filter matches owner, location, description, price or size, where
a price of 750000 matches both "750000" and "750000.0". Text filters are
case-insensitive substrings and price bounds are inclusive.

Sort keys: id, owner, description, location, size, price. Append :desc or
prefix with - for descending order.

Example:
  estates property list --general miami
  estates property list --owner smith --min-price 500000 --sort price:desc
  estates property list --page 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := view.ParseSort(vf.sort)
			if err != nil {
				return &types.ValidationError{Field: "sort", Reason: err.Error()}
			}
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.needProperties(); err != nil {
				return fmt.Errorf("list properties: %w", err)
			}

			s.mgr.SetFilters(vf.filters)
			s.mgr.SetSort(keys)
			if _, _, err := s.mgr.Page(vf.page - 1); err != nil {
				return fmt.Errorf("list properties: %w", err)
			}

			snap := s.mgr.Snapshot()
			if a.flags.jsonMode {
				if snap.Rows == nil {
					snap.Rows = []types.Property{}
				}
				return printJSON(cmd.OutOrStdout(), snap)
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&vf.filters.General, "general", "", "match owner, location, description, price or size")
	f.StringVar(&vf.filters.Owner, "owner", "", "owner name contains")
	f.StringVar(&vf.filters.Location, "location", "", "location contains")
	f.StringVar(&vf.filters.MinPrice, "min-price", "", "minimum price (inclusive)")
	f.StringVar(&vf.filters.MaxPrice, "max-price", "", "maximum price (inclusive)")
	f.StringVar(&vf.sort, "sort", "", "sort keys, e.g. price:desc,owner")
	f.IntVar(&vf.page, "page", 1, "page number, starting at 1")
	return cmd
}

// propertyFlags hold the raw text of a property form. Size and price are
// parsed here so that a bad number gets a precise message.
type propertyFlags struct {
	ownerID     int64
	description string
	location    string
	size        string
	price       string
}

func (pf *propertyFlags) register(f *pflag.FlagSet) {
	f.Int64Var(&pf.ownerID, "owner-id", 0, "id of the owning user")
	f.StringVar(&pf.description, "description", "", "free-text description")
	f.StringVar(&pf.location, "location", "", "location")
	f.StringVar(&pf.size, "size", "", "size, a non-negative number")
	f.StringVar(&pf.price, "price", "", "price, a non-negative number")
}

// apply copies the flags set in f onto p.
func (pf *propertyFlags) apply(f *pflag.FlagSet, p types.Property) (types.Property, error) {
	changed := f.Changed
	if changed("owner-id") {
		p.OwnerID = pf.ownerID
	}
	if changed("description") {
		p.Description = pf.description
	}
	if changed("location") {
		p.Location = pf.location
	}
	if changed("size") {
		v, err := parseNumber("size", pf.size)
		if err != nil {
			return p, err
		}
		p.Size = v
	}
	if changed("price") {
		v, err := parseNumber("price", pf.price)
		if err != nil {
			return p, err
		}
		p.Price = v
	}
	return p, nil
}

func parseNumber(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &types.ValidationError{Field: field, Reason: "size and price must be valid numbers"}
	}
	return v, nil
}

func (a *app) newPropertyAddCmd() *cobra.Command {
	var pf propertyFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a property",
		Long: `Add creates a property owned by an existing user.

Example:
  estates property add --owner-id 1 --location Miami --size 950 --price 620000 --description "Beachfront condo"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pf.apply(cmd.Flags(), types.Property{})
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			added, err := s.mgr.AddProperty(cmd.Context(), p)
			if err := applied(err); err != nil {
				return fmt.Errorf("add property: %w", err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), added)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added property %d\n", added.ID)
			return nil
		},
	}
	pf.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("owner-id")
	return cmd
}

func (a *app) newPropertyUpdateCmd() *cobra.Command {
	var pf propertyFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a property",
		Long: `Update replaces an existing property. A flag left out keeps its current
value.

Example:
  estates property update 4 --price 599000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.needProperties(); err != nil {
				return fmt.Errorf("update property: %w", err)
			}

			current, ok := findProperty(s.mgr.AllProperties(), id)
			if !ok {
				return fmt.Errorf("update property: property %d: %w", id, types.ErrNotFound)
			}
			p, err := pf.apply(cmd.Flags(), current)
			if err != nil {
				return err
			}
			p.Owner = nil
			if err := applied(s.mgr.UpdateProperty(cmd.Context(), p)); err != nil {
				return fmt.Errorf("update property: %w", err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), p.Normalize())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated property %d\n", id)
			return nil
		},
	}
	pf.register(cmd.Flags())
	return cmd
}

func (a *app) newPropertyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a property",
		Long:  "Delete removes a property. Deleting an id that does not exist is not an error.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.mgr.DeleteProperty(cmd.Context(), id)
			if err := applied(err); err != nil {
				return fmt.Errorf("delete property: %w", err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]int64{"id": id, "deleted": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d propert%s\n", n, plural(int(n), "y", "ies"))
			return nil
		},
	}
}

func findProperty(props []types.Property, id int64) (types.Property, bool) {
	for _, p := range props {
		if p.ID == id {
			return p, true
		}
	}
	return types.Property{}, false
}
