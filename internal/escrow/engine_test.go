package escrow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOperator    = "0xop"
	testDepositor   = "0xdep"
	testBeneficiary = "0xben"
	testCustody     = "0xvault"
)

type transferCall struct {
	from   string
	to     string
	amount int64
}

// mockPort 可编程的转账桩，onPull/onPush 用于模拟收款方重入回调
type mockPort struct {
	pulls   []transferCall
	pushes  []transferCall
	pullErr error
	pushErr error
	onPull  func()
	onPush  func()
}

func (p *mockPort) Pull(from, to string, amount int64) error {
	if p.onPull != nil {
		p.onPull()
	}
	if p.pullErr != nil {
		return p.pullErr
	}
	p.pulls = append(p.pulls, transferCall{from: from, to: to, amount: amount})
	return nil
}

func (p *mockPort) Push(to string, amount int64) error {
	if p.onPush != nil {
		p.onPush()
	}
	if p.pushErr != nil {
		return p.pushErr
	}
	p.pushes = append(p.pushes, transferCall{to: to, amount: amount})
	return nil
}

type captureEmitter struct {
	events []*Event
}

func (c *captureEmitter) Emit(evt *Event) { c.events = append(c.events, evt) }

func newTestEngine(t *testing.T) (*Engine, *Store, *mockPort, uint64) {
	t.Helper()
	store := NewStore()
	port := &mockPort{}
	engine := NewEngine(store, port, OperatorAuthorizer{Operator: testOperator})
	engine.SetCustodyAddress(testCustody)
	id, err := store.Create("Coffee batch 7", testBeneficiary, testDepositor, 1000, defaultSpecs())
	require.NoError(t, err)
	return engine, store, port, id
}

func fundEscrow(t *testing.T, engine *Engine, id uint64) {
	t.Helper()
	require.NoError(t, engine.Fund(id, testDepositor))
}

func completeAll(t *testing.T, engine *Engine, id uint64, order []int) {
	t.Helper()
	for _, idx := range order {
		require.NoError(t, engine.CompleteMilestone(id, idx, testOperator))
	}
}

func TestFund(t *testing.T) {
	engine, store, port, id := newTestEngine(t)

	require.NoError(t, engine.Fund(id, testDepositor))

	esc, err := store.Get(id)
	require.NoError(t, err)
	assert.True(t, esc.Funded)
	require.Len(t, port.pulls, 1)
	assert.Equal(t, transferCall{from: testDepositor, to: testCustody, amount: 1000}, port.pulls[0])
}

func TestFundUnauthorized(t *testing.T) {
	engine, store, port, id := newTestEngine(t)

	err := engine.Fund(id, "0xstranger")
	assert.ErrorIs(t, err, ErrUnauthorized)
	// 运营者也不能代替存款人注资
	err = engine.Fund(id, testOperator)
	assert.ErrorIs(t, err, ErrUnauthorized)

	esc, err := store.Get(id)
	require.NoError(t, err)
	assert.False(t, esc.Funded)
	assert.Empty(t, port.pulls)
}

func TestFundTwice(t *testing.T) {
	engine, _, port, id := newTestEngine(t)

	require.NoError(t, engine.Fund(id, testDepositor))
	err := engine.Fund(id, testDepositor)
	assert.ErrorIs(t, err, ErrAlreadyFunded)
	assert.Len(t, port.pulls, 1)
}

func TestFundNotFound(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	err := engine.Fund(42, testDepositor)
	assert.ErrorIs(t, err, ErrEscrowNotFound)
}

func TestFundTransferFailureRollsBack(t *testing.T) {
	engine, store, port, id := newTestEngine(t)
	port.pullErr = errors.New("insufficient allowance")

	err := engine.Fund(id, testDepositor)
	assert.ErrorIs(t, err, ErrTransferFailed)

	esc, err := store.Get(id)
	require.NoError(t, err)
	assert.False(t, esc.Funded)

	// 原因消除后可以重试
	port.pullErr = nil
	require.NoError(t, engine.Fund(id, testDepositor))
	esc, err = store.Get(id)
	require.NoError(t, err)
	assert.True(t, esc.Funded)
	assert.Len(t, port.pulls, 1)
}

func TestFundReentrantCallRejected(t *testing.T) {
	engine, _, port, id := newTestEngine(t)
	var reentrantErr error
	port.onPull = func() {
		port.onPull = nil
		reentrantErr = engine.Fund(id, testDepositor)
	}

	require.NoError(t, engine.Fund(id, testDepositor))
	assert.ErrorIs(t, reentrantErr, ErrAlreadyFunded)
	assert.Len(t, port.pulls, 1)
}

func TestCompleteMilestone(t *testing.T) {
	engine, store, _, id := newTestEngine(t)
	fundEscrow(t, engine, id)

	require.NoError(t, engine.CompleteMilestone(id, 1, testOperator))

	m, err := store.GetMilestone(id, 1)
	require.NoError(t, err)
	assert.True(t, m.Completed)
	assert.False(t, m.CompletedAt.IsZero())

	// 其余里程碑不受影响
	m0, err := store.GetMilestone(id, 0)
	require.NoError(t, err)
	assert.False(t, m0.Completed)
}

func TestCompleteMilestonePreconditions(t *testing.T) {
	engine, _, _, id := newTestEngine(t)

	// 未注资
	err := engine.CompleteMilestone(id, 0, testOperator)
	assert.ErrorIs(t, err, ErrNotFunded)

	fundEscrow(t, engine, id)

	// 非运营者
	err = engine.CompleteMilestone(id, 0, testDepositor)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// 序号越界
	err = engine.CompleteMilestone(id, 3, testOperator)
	assert.ErrorIs(t, err, ErrMilestoneIndexInvalid)
	err = engine.CompleteMilestone(id, -1, testOperator)
	assert.ErrorIs(t, err, ErrMilestoneIndexInvalid)

	// 重复完成
	require.NoError(t, engine.CompleteMilestone(id, 0, testOperator))
	err = engine.CompleteMilestone(id, 0, testOperator)
	assert.ErrorIs(t, err, ErrMilestoneCompleted)
}

func TestCompleteMilestoneAfterResolve(t *testing.T) {
	engine, _, _, id := newTestEngine(t)
	fundEscrow(t, engine, id)
	require.NoError(t, engine.Refund(id, testOperator))

	err := engine.CompleteMilestone(id, 0, testOperator)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestReleaseRequiresAllMilestones(t *testing.T) {
	engine, _, port, id := newTestEngine(t)
	fundEscrow(t, engine, id)

	err := engine.Release(id, testOperator)
	assert.ErrorIs(t, err, ErrMilestonesIncomplete)

	require.NoError(t, engine.CompleteMilestone(id, 0, testOperator))
	require.NoError(t, engine.CompleteMilestone(id, 2, testOperator))
	err = engine.Release(id, testOperator)
	assert.ErrorIs(t, err, ErrMilestonesIncomplete)
	assert.Empty(t, port.pushes)

	require.NoError(t, engine.CompleteMilestone(id, 1, testOperator))
	require.NoError(t, engine.Release(id, testOperator))
	require.Len(t, port.pushes, 1)
	assert.Equal(t, transferCall{to: testBeneficiary, amount: 1000}, port.pushes[0])
}

func TestReleaseOrderIndependent(t *testing.T) {
	// 任意完成顺序都得到相同的可释放判定
	orders := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	for _, order := range orders {
		engine, store, _, id := newTestEngine(t)
		fundEscrow(t, engine, id)
		completeAll(t, engine, id, order)

		require.NoError(t, engine.Release(id, testOperator))
		esc, err := store.Get(id)
		require.NoError(t, err)
		assert.True(t, esc.Completed)
	}
}

func TestReleaseTerminal(t *testing.T) {
	engine, store, port, id := newTestEngine(t)
	fundEscrow(t, engine, id)
	completeAll(t, engine, id, []int{0, 1, 2})
	require.NoError(t, engine.Release(id, testOperator))

	// 再次释放或退款都被拒绝，且不发生第二次转账
	err := engine.Release(id, testOperator)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	err = engine.Refund(id, testOperator)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.Len(t, port.pushes, 1)

	esc, err := store.Get(id)
	require.NoError(t, err)
	assert.True(t, esc.Completed)
	assert.False(t, esc.Refunded)
	assert.False(t, esc.CompletedAt.IsZero())
}

func TestReleaseReentrantCallRejected(t *testing.T) {
	engine, _, port, id := newTestEngine(t)
	fundEscrow(t, engine, id)
	completeAll(t, engine, id, []int{0, 1, 2})

	var reentrantRelease, reentrantRefund error
	port.onPush = func() {
		port.onPush = nil
		// 恶意收款方在转账回调里重入
		reentrantRelease = engine.Release(id, testOperator)
		reentrantRefund = engine.Refund(id, testOperator)
	}

	require.NoError(t, engine.Release(id, testOperator))
	assert.ErrorIs(t, reentrantRelease, ErrAlreadyResolved)
	assert.ErrorIs(t, reentrantRefund, ErrAlreadyResolved)
	assert.Len(t, port.pushes, 1)
}

func TestReleaseTransferFailureRollsBack(t *testing.T) {
	engine, store, port, id := newTestEngine(t)
	fundEscrow(t, engine, id)
	completeAll(t, engine, id, []int{0, 1, 2})
	port.pushErr = errors.New("vault unavailable")

	err := engine.Release(id, testOperator)
	assert.ErrorIs(t, err, ErrTransferFailed)

	esc, err := store.Get(id)
	require.NoError(t, err)
	assert.False(t, esc.Completed)
	assert.True(t, esc.CompletedAt.IsZero())

	port.pushErr = nil
	require.NoError(t, engine.Release(id, testOperator))
	assert.Len(t, port.pushes, 1)
}

func TestReleaseUnauthorized(t *testing.T) {
	engine, _, _, id := newTestEngine(t)
	fundEscrow(t, engine, id)
	completeAll(t, engine, id, []int{0, 1, 2})

	err := engine.Release(id, testDepositor)
	assert.ErrorIs(t, err, ErrUnauthorized)
	err = engine.Release(id, testBeneficiary)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefundBeforeCompletion(t *testing.T) {
	engine, store, port, id := newTestEngine(t)
	fundEscrow(t, engine, id)

	require.NoError(t, engine.Refund(id, testOperator))

	esc, err := store.Get(id)
	require.NoError(t, err)
	assert.True(t, esc.Refunded)
	assert.False(t, esc.Completed)
	require.Len(t, port.pushes, 1)
	assert.Equal(t, transferCall{to: testDepositor, amount: 1000}, port.pushes[0])

	// 退款后记录终结，里程碑不可再完成
	err = engine.CompleteMilestone(id, 0, testOperator)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	// 也不可再注资
	err = engine.Fund(id, testDepositor)
	assert.ErrorIs(t, err, ErrAlreadyFunded)
}

func TestRefundRequiresFunded(t *testing.T) {
	engine, _, _, id := newTestEngine(t)
	err := engine.Refund(id, testOperator)
	assert.ErrorIs(t, err, ErrNotFunded)
}

func TestRefundTransferFailureRollsBack(t *testing.T) {
	engine, store, port, id := newTestEngine(t)
	fundEscrow(t, engine, id)
	port.pushErr = errors.New("vault unavailable")

	err := engine.Refund(id, testOperator)
	assert.ErrorIs(t, err, ErrTransferFailed)

	esc, err := store.Get(id)
	require.NoError(t, err)
	assert.False(t, esc.Refunded)

	port.pushErr = nil
	require.NoError(t, engine.Refund(id, testOperator))
	assert.Len(t, port.pushes, 1)
}

func TestCompletedRefundedNeverBothTrue(t *testing.T) {
	// 各种操作序列下 Completed 和 Refunded 不会同时为真
	sequences := [][]string{
		{"fund", "refund", "release"},
		{"fund", "complete_all", "release", "refund"},
		{"fund", "complete_all", "refund", "release"},
	}
	for _, seq := range sequences {
		engine, store, _, id := newTestEngine(t)
		for _, op := range seq {
			switch op {
			case "fund":
				_ = engine.Fund(id, testDepositor)
			case "complete_all":
				for i := 0; i < 3; i++ {
					_ = engine.CompleteMilestone(id, i, testOperator)
				}
			case "release":
				_ = engine.Release(id, testOperator)
			case "refund":
				_ = engine.Refund(id, testOperator)
			}
			esc, err := store.Get(id)
			require.NoError(t, err)
			assert.False(t, esc.Completed && esc.Refunded)
			if esc.Resolved() {
				assert.True(t, esc.Funded)
			}
		}
	}
}

func TestProgressMonotonic(t *testing.T) {
	engine, _, _, id := newTestEngine(t)
	fundEscrow(t, engine, id)

	progress, err := engine.GetProgress(id)
	require.NoError(t, err)
	assert.Equal(t, 0, progress)

	// 乱序完成：1(30) → 0(40) → 2(30)，进度 0→30→70→100
	expected := []int{30, 70, 100}
	for i, idx := range []int{1, 0, 2} {
		require.NoError(t, engine.CompleteMilestone(id, idx, testOperator))
		progress, err = engine.GetProgress(id)
		require.NoError(t, err)
		assert.Equal(t, expected[i], progress)
	}

	done, err := engine.AllMilestonesCompleted(id)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestQueryOperations(t *testing.T) {
	engine, _, _, id := newTestEngine(t)

	count, err := engine.MilestoneCount(id)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	m, err := engine.GetMilestone(id, 2)
	require.NoError(t, err)
	assert.Equal(t, "Ship", m.Description)

	done, err := engine.AllMilestonesCompleted(id)
	require.NoError(t, err)
	assert.False(t, done)

	_, err = engine.GetEscrow(7)
	assert.ErrorIs(t, err, ErrEscrowNotFound)
	_, err = engine.GetProgress(7)
	assert.ErrorIs(t, err, ErrEscrowNotFound)
}

// 完整生命周期：创建 [("Harvest",40),("Quality",30),("Ship",30)] 总额1000，
// 注资后按 1→0→2 完成，进度 0→30→70→100，第三次完成后才能释放，
// 受益人恰好收到一次1000
func TestFullLifecycleScenario(t *testing.T) {
	store := NewStore()
	port := &mockPort{}
	engine := NewEngine(store, port, OperatorAuthorizer{Operator: testOperator})
	engine.SetCustodyAddress(testCustody)
	emitter := &captureEmitter{}
	store.SetEmitter(emitter)
	engine.SetEmitter(emitter)

	id, err := store.Create("Coffee batch 7", testBeneficiary, testDepositor, 1000, []MilestoneSpec{
		{Description: "Harvest", Weight: 40},
		{Description: "Quality", Weight: 30},
		{Description: "Ship", Weight: 30},
	})
	require.NoError(t, err)

	require.NoError(t, engine.Fund(id, testDepositor))

	require.NoError(t, engine.CompleteMilestone(id, 1, testOperator))
	err = engine.Release(id, testOperator)
	assert.ErrorIs(t, err, ErrMilestonesIncomplete)

	require.NoError(t, engine.CompleteMilestone(id, 0, testOperator))
	err = engine.Release(id, testOperator)
	assert.ErrorIs(t, err, ErrMilestonesIncomplete)

	require.NoError(t, engine.CompleteMilestone(id, 2, testOperator))
	require.NoError(t, engine.Release(id, testOperator))

	require.Len(t, port.pushes, 1)
	assert.Equal(t, transferCall{to: testBeneficiary, amount: 1000}, port.pushes[0])

	types := make([]string, 0, len(emitter.events))
	for _, evt := range emitter.events {
		types = append(types, evt.Type)
	}
	assert.Equal(t, []string{
		EventTypeCreated,
		EventTypeFunded,
		EventTypeMilestoneCompleted,
		EventTypeMilestoneCompleted,
		EventTypeMilestoneCompleted,
		EventTypeReleased,
	}, types)
}
