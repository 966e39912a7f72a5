// Parses flags and wires the component graph for the debox CLI.
//
// The CLI accepts the following global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output.
//	-d, --debug     Enable debug output.
//	    --settings  Settings file path.
//
// Flags override build-time defaults set via linker flags. After parsing,
// the global logger is reconfigured to reflect the final level before the
// selected command runs. Each command builds its components from the
// settings file, so the settings flow into constructors explicitly rather
// than being read deep inside the call chain.
package cli
