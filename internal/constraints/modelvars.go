package constraints

import (
	"fmt"

	"examtt/internal/model"
	"examtt/internal/variables"
)

// ModelVars maps every key in a SharedVariables lattice to the model.VarID
// the backend actually allocated for it. Built once per compile, shared by
// every constraint module so no module creates a duplicate variable.
type ModelVars struct {
	X map[variables.XKey]model.VarID
	Z map[variables.XKey]model.VarID
	Y map[variables.YKey]model.VarID
	U map[variables.UKey]model.VarID
}

// BuildModelVars materializes one model.VarID per SharedVariables entry.
func BuildModelVars(sv *variables.SharedVariables, m model.ConstraintModel) *ModelVars {
	mv := &ModelVars{
		X: make(map[variables.XKey]model.VarID, sv.X.Len()),
		Z: make(map[variables.XKey]model.VarID, sv.Z.Len()),
		Y: make(map[variables.YKey]model.VarID, sv.Y.Len()),
		U: make(map[variables.UKey]model.VarID, sv.U.Len()),
	}
	for _, k := range sv.X.Keys() {
		mv.X[k] = m.NewBoolVar(fmt.Sprintf("x[%s,%s]", k.ExamID, k.SlotID))
	}
	for _, k := range sv.Z.Keys() {
		mv.Z[k] = m.NewBoolVar(fmt.Sprintf("z[%s,%s]", k.ExamID, k.SlotID))
	}
	for _, k := range sv.Y.Keys() {
		mv.Y[k] = m.NewBoolVar(fmt.Sprintf("y[%s,%s,%s]", k.ExamID, k.RoomID, k.SlotID))
	}
	for _, k := range sv.U.Keys() {
		mv.U[k] = m.NewBoolVar(fmt.Sprintf("u[%s,%s,%s,%s]", k.InvigilatorID, k.ExamID, k.RoomID, k.SlotID))
	}
	return mv
}
