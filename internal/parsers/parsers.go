// Package parsers imports all next-layer parser packages to trigger their
// init() registration. Import this package for side effects only.
package parsers

import (
	_ "vdl2_parser/internal/parsers/clnp"
	_ "vdl2_parser/internal/parsers/esis"
)
