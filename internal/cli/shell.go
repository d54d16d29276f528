package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/mesh-intelligence/estates/internal/manager"
	"github.com/mesh-intelligence/estates/internal/view"
	"github.com/mesh-intelligence/estates/pkg/types"
)

const shellHelp = `Commands:
  show                       print the current page
  filter <name> [value]      set a filter (general, owner, location, min-price, max-price);
                             no value clears it
  filter clear               clear every filter
  sort [keys]                sort by keys such as price:desc,owner; no keys restores store order
  page <n>                   go to page n
  next, prev                 move one page
  refresh                    reload users and properties from the store
  users                      list users
  add-user --name N --email E
  update-user <id> [--name N] [--email E]
  delete-user <id>           delete a user and every property it owns
  add-property --owner-id ID [--description D] [--location L] [--size S] [--price P]
  update-property <id> [--owner-id ID] [--description D] [--location L] [--size S] [--price P]
  delete-property <id>
  help                       show this help
  quit                       leave the shell

Values with spaces go in double quotes. After a change the view is reloaded
with the current filters and sort.`

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *app) newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Browse properties interactively",
		Long: `Shell keeps one view open and reads commands from standard input. Every
filter, sort or refresh recomputes the view and prints its first page.

` + shellHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			sh := &shell{
				mgr:    s.mgr,
				out:    cmd.OutOrStdout(),
				json:   a.flags.jsonMode,
				prompt: isTerminal(cmd.InOrStdin()),
			}
			s.mgr.OnChange(sh.render)
			return sh.run(cmd, cmd.InOrStdin())
		},
	}
}

// shell is one interactive session over a manager.
type shell struct {
	mgr    *manager.Manager
	out    io.Writer
	json   bool
	prompt bool
}

func (sh *shell) render(snap view.Snapshot) {
	if sh.json {
		if snap.Rows == nil {
			snap.Rows = []types.Property{}
		}
		_ = printJSON(sh.out, snap)
		return
	}
	printSnapshot(sh.out, snap)
}

func (sh *shell) run(cmd *cobra.Command, in io.Reader) error {
	sh.render(sh.mgr.Snapshot())

	scanner := bufio.NewScanner(in)
	for {
		if sh.prompt {
			fmt.Fprint(sh.out, "estates> ")
		}
		if !scanner.Scan() {
			break
		}
		fields, err := splitWords(scanner.Text())
		if err != nil {
			fmt.Fprintf(sh.out, "error: %s\n", err)
			continue
		}
		if len(fields) == 0 {
			continue
		}
		quit, err := sh.exec(cmd, fields[0], fields[1:])
		if err != nil {
			fmt.Fprintf(sh.out, "error: %s\n", err)
		}
		if quit {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return sysErr("read input", err)
	}
	return nil
}

func (sh *shell) exec(cmd *cobra.Command, name string, args []string) (bool, error) {
	switch strings.ToLower(name) {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprintln(sh.out, shellHelp)
	case "show", "list":
		sh.render(sh.mgr.Snapshot())
	case "filter":
		return false, sh.filter(args)
	case "sort":
		keys, err := view.ParseSort(strings.Join(args, ","))
		if err != nil {
			return false, err
		}
		sh.mgr.SetSort(keys)
	case "page":
		if len(args) != 1 {
			return false, fmt.Errorf("page needs a page number")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, fmt.Errorf("page %q is not a number", args[0])
		}
		return false, sh.page(n - 1)
	case "next":
		return false, sh.page(sh.mgr.Snapshot().Page + 1)
	case "prev":
		return false, sh.page(sh.mgr.Snapshot().Page - 1)
	case "refresh":
		return false, sh.mgr.RefreshAll(cmd.Context())
	case "add-user":
		return false, sh.addUser(cmd.Context(), args)
	case "update-user":
		return false, sh.updateUser(cmd.Context(), args)
	case "delete-user":
		return false, sh.deleteUser(cmd.Context(), args)
	case "add-property":
		return false, sh.addProperty(cmd.Context(), args)
	case "update-property":
		return false, sh.updateProperty(cmd.Context(), args)
	case "delete-property":
		return false, sh.deleteProperty(cmd.Context(), args)
	case "users":
		if err := sh.mgr.UsersErr(); err != nil {
			return false, err
		}
		users := sh.mgr.ListUsers()
		if sh.json {
			if users == nil {
				users = []types.User{}
			}
			return false, printJSON(sh.out, users)
		}
		printUsers(sh.out, users)
	default:
		return false, fmt.Errorf("unknown command %q (try help)", name)
	}
	return false, nil
}

func (sh *shell) filter(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("filter needs a name")
	}
	if strings.EqualFold(args[0], "clear") {
		sh.mgr.SetFilters(view.Filters{})
		return nil
	}
	d, err := view.ParseDimension(args[0])
	if err != nil {
		return err
	}
	sh.mgr.SetFilter(d, strings.Join(args[1:], " "))
	return nil
}

func (sh *shell) page(index int) error {
	_, _, err := sh.mgr.Page(index)
	return err
}

// newVerbFlags returns a flag set for one shell verb. Parse errors are
// returned, never printed.
func newVerbFlags(verb string) *pflag.FlagSet {
	f := pflag.NewFlagSet(verb, pflag.ContinueOnError)
	f.SetOutput(io.Discard)
	return f
}

// verbID parses the single positional id of a verb.
func verbID(verb string, f *pflag.FlagSet) (int64, error) {
	if f.NArg() != 1 {
		return 0, fmt.Errorf("%s needs one id", verb)
	}
	return parseID(f.Arg(0))
}

func (sh *shell) addUser(ctx context.Context, args []string) error {
	var name, email string
	f := newVerbFlags("add-user")
	f.StringVar(&name, "name", "", "")
	f.StringVar(&email, "email", "", "")
	if err := f.Parse(args); err != nil {
		return err
	}
	u, err := sh.mgr.AddUser(ctx, types.User{Name: name, Email: email})
	if err := applied(err); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Added user %d: %s\n", u.ID, u)
	return nil
}

func (sh *shell) updateUser(ctx context.Context, args []string) error {
	var name, email string
	f := newVerbFlags("update-user")
	f.StringVar(&name, "name", "", "")
	f.StringVar(&email, "email", "", "")
	if err := f.Parse(args); err != nil {
		return err
	}
	id, err := verbID("update-user", f)
	if err != nil {
		return err
	}
	if err := sh.mgr.UsersErr(); err != nil {
		return err
	}
	u, ok := findUser(sh.mgr.ListUsers(), id)
	if !ok {
		return fmt.Errorf("user %d: %w", id, types.ErrNotFound)
	}
	if f.Changed("name") {
		u.Name = name
	}
	if f.Changed("email") {
		u.Email = email
	}
	if err := applied(sh.mgr.UpdateUser(ctx, u)); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Updated user %d\n", id)
	return nil
}

func (sh *shell) deleteUser(ctx context.Context, args []string) error {
	f := newVerbFlags("delete-user")
	if err := f.Parse(args); err != nil {
		return err
	}
	id, err := verbID("delete-user", f)
	if err != nil {
		return err
	}
	if err := applied(sh.mgr.DeleteUser(ctx, id)); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Deleted user %d\n", id)
	return nil
}

func (sh *shell) addProperty(ctx context.Context, args []string) error {
	var pf propertyFlags
	f := newVerbFlags("add-property")
	pf.register(f)
	if err := f.Parse(args); err != nil {
		return err
	}
	if !f.Changed("owner-id") {
		return errors.New("add-property needs --owner-id")
	}
	p, err := pf.apply(f, types.Property{})
	if err != nil {
		return err
	}
	added, err := sh.mgr.AddProperty(ctx, p)
	if err := applied(err); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Added property %d\n", added.ID)
	return nil
}

func (sh *shell) updateProperty(ctx context.Context, args []string) error {
	var pf propertyFlags
	f := newVerbFlags("update-property")
	pf.register(f)
	if err := f.Parse(args); err != nil {
		return err
	}
	id, err := verbID("update-property", f)
	if err != nil {
		return err
	}
	if err := sh.mgr.PropertiesErr(); err != nil {
		return err
	}
	current, ok := findProperty(sh.mgr.AllProperties(), id)
	if !ok {
		return fmt.Errorf("property %d: %w", id, types.ErrNotFound)
	}
	p, err := pf.apply(f, current)
	if err != nil {
		return err
	}
	p.Owner = nil
	if err := applied(sh.mgr.UpdateProperty(ctx, p)); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Updated property %d\n", id)
	return nil
}

func (sh *shell) deleteProperty(ctx context.Context, args []string) error {
	f := newVerbFlags("delete-property")
	if err := f.Parse(args); err != nil {
		return err
	}
	id, err := verbID("delete-property", f)
	if err != nil {
		return err
	}
	n, err := sh.mgr.DeleteProperty(ctx, id)
	if err := applied(err); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "Deleted %d propert%s\n", n, plural(int(n), "y", "ies"))
	return nil
}

// splitWords splits a shell line on whitespace. Double quotes group words
// and are removed.
func splitWords(line string) ([]string, error) {
	var (
		words   []string
		cur     strings.Builder
		inWord  bool
		inQuote bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			inWord = true
		case !inQuote && (r == ' ' || r == '\t'):
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if inQuote {
		return nil, errors.New("unterminated quote")
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}
