package rbac

const (
	PermQuizAttempt    = "quiz:attempt"
	PermQuizSubmit     = "quiz:submit"
	PermAttemptViewOwn = "attempt:view-own"
	PermAttemptViewAll = "attempt:view-all"
)

// Default policy. Instructors review attempts but do not take quizzes.
var RolePermissions = map[string][]string{
	"student": {
		PermQuizAttempt,
		PermQuizSubmit,
		PermAttemptViewOwn,
	},
	"teacher": {
		PermAttemptViewOwn,
		PermAttemptViewAll,
	},
	"admin": {
		"*", // everything
	},
}
