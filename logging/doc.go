// Package logging builds the structured logger of a replica.
package logging
