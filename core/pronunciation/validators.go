package pronunciation

import (
	"strings"

	"github.com/trezcool/eslclass/core"
)

var (
	practiceModeTag  = "practicemode"
	practiceModeText = "mode must be one of " + strings.Join(Modes, ", ")
)

func init() {
	core.RegisterValidation(practiceModeTag, practiceModeText, core.OneOfValidation(Modes...))
}
