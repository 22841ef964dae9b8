package lesson

import (
	"strings"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/user"
)

var (
	lessonLevelTag  = "lessonlevel"
	lessonLevelText = "level must be one of " + strings.Join(user.Levels, ", ")

	activityTypeTag  = "activitytype"
	activityTypeText = "type must be one of " + strings.Join(ActivityTypes, ", ")
)

func init() {
	core.RegisterValidation(lessonLevelTag, lessonLevelText, core.OneOfValidation(user.Levels...))
	core.RegisterValidation(activityTypeTag, activityTypeText, core.OneOfValidation(ActivityTypes...))
}
