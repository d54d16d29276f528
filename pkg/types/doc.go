// Package types defines the User and Property entities, the repository
// contracts the storage layer implements, backend configuration, and the
// standard errors shared by every estates package.
package types
