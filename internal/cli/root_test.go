package cli

import (
	"testing"

	"github.com/deboxhq/debox/internal"
)

func TestConfigureLoggerPropagatesFlags(t *testing.T) {
	t.Cleanup(func() {
		RootCmd.Quiet = false
		RootCmd.Debug = false
		RootCmd.Verbose = false
		internal.SetQuiet(false)
		internal.SetDebug(false)
		internal.SetVerbose(false)
	})

	RootCmd.Debug = true
	RootCmd.Verbose = true
	configureLogger()

	if !internal.IsDebug() {
		t.Fatal("-d flag not propagated to the global debug mode")
	}
	if !internal.IsVerbose() {
		t.Fatal("-v flag not propagated to the global verbose mode")
	}
	if internal.IsQuiet() {
		t.Fatal("quiet mode set without -q")
	}
}
