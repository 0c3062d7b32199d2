package docs

import "embed"

// FS contains long-form Markdown docs bundled with the vlm binary.
//
//go:embed guide
var FS embed.FS
