package class

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/eslclass/core"
	"github.com/trezcool/eslclass/core/user"
)

var (
	classLevelTag  = "classlevel"
	classLevelText = "level must be one of " + strings.Join(user.Levels, ", ")

	weekdayTag  = "weekday"
	weekdayText = "days must be week days, e.g. Monday"

	classTimeTag   = "classtime"
	classTimeText  = "time must look like 10:00 AM or 14:30"
	classTimeRegex = regexp.MustCompile(`^((0?[1-9]|1[0-2]):[0-5]\d ?([AaPp][Mm])|([01]?\d|2[0-3]):[0-5]\d)$`)
)

func init() {
	core.RegisterValidation(classLevelTag, classLevelText, core.OneOfValidation(user.Levels...))
	core.RegisterValidation(weekdayTag, weekdayText, core.OneOfValidation(Weekdays...))
	core.RegisterValidation(classTimeTag, classTimeText, func(fl validator.FieldLevel) bool {
		return classTimeRegex.MatchString(fl.Field().String())
	})
}
