package constraints

import (
	"context"
	"time"

	"examtt/internal/model"
)

// fakeModel is a minimal in-memory model.ConstraintModel recording what
// was built, used to test the compiler and constraint modules without a
// real backend.
type fakeModel struct {
	nextVar       model.VarID
	linearLE      int
	linearEQ      int
	boolOr        int
	implications  int
	exactlyOne    int
	objectiveTerms []model.LinearTerm
	maximized     bool
	minimized     bool
}

func (f *fakeModel) NewBoolVar(string) model.VarID {
	f.nextVar++
	return f.nextVar
}

func (f *fakeModel) AddLinearLE([]model.LinearTerm, int64) { f.linearLE++ }
func (f *fakeModel) AddLinearEQ([]model.LinearTerm, int64) { f.linearEQ++ }
func (f *fakeModel) AddBoolOr([]model.Literal)             { f.boolOr++ }
func (f *fakeModel) AddImplication(model.Literal, model.Literal) { f.implications++ }
func (f *fakeModel) AddExactlyOne([]model.VarID)           { f.exactlyOne++ }
func (f *fakeModel) SetHint(model.VarID, int)              {}

func (f *fakeModel) Maximize(terms []model.LinearTerm) {
	f.maximized = true
	f.objectiveTerms = terms
}
func (f *fakeModel) Minimize(terms []model.LinearTerm) {
	f.minimized = true
	f.objectiveTerms = terms
}

func (f *fakeModel) Solve(context.Context, time.Duration) (model.SolveResult, error) {
	return model.SolveResult{Status: model.StatusOptimal}, nil
}
