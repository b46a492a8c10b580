package types

// Version is the canonical project version.
// The CLI and the checkpoint schema reference this constant; keep them in
// lockstep when cutting a release.
const Version = "0.4.0"
