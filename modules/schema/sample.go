package schema

import (
	_ "embed"
)

// Sample is a small built in catalogue with an embedded runtime section,
// used when no chain or catalogue file is configured.
//
//go:embed sample.yaml
var Sample []byte
