package models

import "fmt"

// Role is the closed set of account roles.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// ParseRole converts a free-text role into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// AnswerRole tags who authored an Answer.
type AnswerRole string

const (
	AnswerRoleAI      AnswerRole = "AI"
	AnswerRoleStudent AnswerRole = "student"
	AnswerRoleTeacher AnswerRole = "teacher"
)

// AnswerRoleFor maps an account role to the tag stored on its answers.
// Admins answer as staff and are tagged teacher.
func AnswerRoleFor(r Role) (AnswerRole, error) {
	switch r {
	case RoleStudent:
		return AnswerRoleStudent, nil
	case RoleTeacher, RoleAdmin:
		return AnswerRoleTeacher, nil
	default:
		return "", fmt.Errorf("unknown role %q", r)
	}
}
