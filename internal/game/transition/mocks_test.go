package transition

import (
	"github.com/stretchr/testify/mock"

	"github.com/udisondev/towergate/internal/game/zone"
	"github.com/udisondev/towergate/internal/model"
)

// mockPolicy is a testify mock implementing both AdmissionPolicy and ExitPolicy.
type mockPolicy struct {
	mock.Mock
}

func (m *mockPolicy) CanEnter(entity model.EntityID, b zone.Binding) (bool, string) {
	args := m.Called(entity, b)
	return args.Bool(0), args.String(1)
}

func (m *mockPolicy) CanExit(entity model.EntityID, b zone.Binding) (bool, string) {
	args := m.Called(entity, b)
	return args.Bool(0), args.String(1)
}

// sinkCall records one side effect.
type sinkCall struct {
	hook  string
	floor int32
	// regionAtCall is the controller state observed from inside the hook.
	regionAtCall string
}

// recordingSink records side effects in order.
type recordingSink struct {
	ctrl   *Controller
	entity model.EntityID
	calls  []sinkCall
	fail   map[string]error
	panics map[string]bool
}

func (s *recordingSink) record(hook string, floor int32) error {
	call := sinkCall{hook: hook, floor: floor}
	if s.ctrl != nil {
		st, _ := s.ctrl.State(s.entity)
		call.regionAtCall = st.RegionID
	}
	s.calls = append(s.calls, call)
	if s.panics[hook] {
		panic(hook + " exploded")
	}
	return s.fail[hook]
}

func (s *recordingSink) OnEnter(_ model.EntityID, b zone.Binding) error {
	return s.record("enter", b.Floor)
}
func (s *recordingSink) OnExit(_ model.EntityID, b zone.Binding) error {
	return s.record("exit", b.Floor)
}
func (s *recordingSink) OnObjectiveReset(model.EntityID) error { return s.record("reset", -1) }

func (s *recordingSink) hooks() []string {
	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c.hook)
	}
	return out
}

type countingObserver struct {
	committed int
	denied    map[string]int
	failed    map[string]int
	tracked   int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{denied: map[string]int{}, failed: map[string]int{}}
}

func (o *countingObserver) TransitionCommitted(bool, bool) { o.committed++ }
func (o *countingObserver) TransitionDenied(stage string)  { o.denied[stage]++ }
func (o *countingObserver) SideEffectFailed(hook string)   { o.failed[hook]++ }
func (o *countingObserver) EntitiesTracked(n int)          { o.tracked = n }
