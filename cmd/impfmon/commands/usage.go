package commands

import (
	"strings"

	"github.com/spf13/cobra"

	perr "impfmon/internal/platform/errors"
)

// cobra reports bad commands and arguments as plain errors
var usagePrefixes = []string{"unknown command", "unknown flag", "unknown shorthand", "accepts ", "requires at least", "invalid argument", "if any flags in the group"}

func isUsage(err error) bool {
	msg := err.Error()
	for _, p := range usagePrefixes {
		if strings.HasPrefix(msg, p) {
			return true
		}
	}
	return false
}

// noArgs rejects positional arguments with a usage error
func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return perr.InvalidArgf("unexpected arguments: %s", strings.Join(args, " "))
	}
	return nil
}
