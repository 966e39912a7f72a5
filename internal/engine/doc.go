// Package engine turns config edits into the minimal set of runtime
// actions.
//
// Config changes are classified into ordered tiers by comparing per-tier
// content hashes against the applied-state record: an image-tier change
// forces a rebuild, a container-tier change a recreation, an
// integration-tier change only a re-export of desktop artifacts. The
// cascade for the selected tier tears runtime state down from the outside
// in and rebuilds it from the inside out, committing each tier's hash only
// after its action succeeded. A change confined to a lower tier never
// triggers a higher tier's action.
//
// All side effects run through the [ContainerRuntime], [DesktopExporter],
// and [ImageBackup] collaborators; the engine itself only owns
// classification, ordering, and the applied-state read-modify-write.
package engine
