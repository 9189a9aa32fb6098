package auth

import "github.com/MatejStrlek/uni-course-management/internal/model"

// subsumes is the declared role hierarchy: the set of roles each role may act
// as. Consulted as plain data, never derived from behavior.
var subsumes = map[model.Role]map[model.Role]bool{
	model.RoleAdmin: {
		model.RoleAdmin:     true,
		model.RoleProfessor: true,
		model.RoleStudent:   true,
	},
	model.RoleProfessor: {
		model.RoleProfessor: true,
	},
	model.RoleStudent: {
		model.RoleStudent: true,
	},
}

// RoleAllows reports whether a caller holding `have` may act as `need`.
func RoleAllows(have, need model.Role) bool {
	return subsumes[have][need]
}
