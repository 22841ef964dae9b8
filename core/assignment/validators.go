package assignment

import (
	"strings"

	"github.com/trezcool/eslclass/core"
)

var (
	assignmentTypeTag  = "assignmenttype"
	assignmentTypeText = "type must be one of " + strings.Join(Types, ", ")
)

func init() {
	core.RegisterValidation(assignmentTypeTag, assignmentTypeText, core.OneOfValidation(Types...))
}
