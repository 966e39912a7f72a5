// Provides platform-appropriate paths for the tool.
//
// All paths follow XDG conventions. The tool name "debox" is used as the
// subdirectory under each base path. Application config directories live
// under the config home, isolated homes and registry storage under the data
// home, and desktop integration artifacts in the standard freedesktop
// locations.
package paths
