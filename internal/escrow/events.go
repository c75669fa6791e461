package escrow

import "strconv"

const (
	EventTypeCreated            = "escrow.created"
	EventTypeFunded             = "escrow.funded"
	EventTypeMilestoneCompleted = "escrow.milestone_completed"
	EventTypeReleased           = "escrow.released"
	EventTypeRefunded           = "escrow.refunded"
)

// Event 对外通知载荷，只携带本次变更相关的字段
// 投递是 fire-and-forget，消费方不回执
type Event struct {
	Type       string
	EscrowID   uint64
	Attributes map[string]string
}

// Emitter 通知发射口，由外部观察者（索引器、审计）实现
type Emitter interface {
	Emit(evt *Event)
}

// NoopEmitter 默认空实现
type NoopEmitter struct{}

func (NoopEmitter) Emit(*Event) {}

// NewCreatedEvent 托管创建通知
func NewCreatedEvent(e *Escrow) *Event {
	evt := newEscrowEvent(EventTypeCreated, e)
	if e != nil {
		evt.Attributes["title"] = e.Title
		evt.Attributes["beneficiary"] = e.Beneficiary
		evt.Attributes["depositor"] = e.Depositor
		evt.Attributes["total_amount"] = strconv.FormatInt(e.TotalAmount, 10)
		evt.Attributes["milestone_count"] = strconv.Itoa(len(e.Milestones))
	}
	return evt
}

// NewFundedEvent 注资完成通知
func NewFundedEvent(e *Escrow) *Event {
	evt := newEscrowEvent(EventTypeFunded, e)
	if e != nil {
		evt.Attributes["depositor"] = e.Depositor
		evt.Attributes["total_amount"] = strconv.FormatInt(e.TotalAmount, 10)
	}
	return evt
}

// NewMilestoneCompletedEvent 里程碑完成通知
func NewMilestoneCompletedEvent(e *Escrow, index int) *Event {
	evt := newEscrowEvent(EventTypeMilestoneCompleted, e)
	if e == nil || index < 0 || index >= len(e.Milestones) {
		return evt
	}
	m := e.Milestones[index]
	evt.Attributes["index"] = strconv.Itoa(index)
	evt.Attributes["description"] = m.Description
	evt.Attributes["weight"] = strconv.Itoa(m.Weight)
	evt.Attributes["progress"] = strconv.Itoa(e.Progress())
	return evt
}

// NewReleasedEvent 资金释放通知
func NewReleasedEvent(e *Escrow) *Event {
	evt := newEscrowEvent(EventTypeReleased, e)
	if e != nil {
		evt.Attributes["beneficiary"] = e.Beneficiary
		evt.Attributes["total_amount"] = strconv.FormatInt(e.TotalAmount, 10)
		evt.Attributes["completed_at"] = strconv.FormatInt(e.CompletedAt.Unix(), 10)
	}
	return evt
}

// NewRefundedEvent 退款通知
func NewRefundedEvent(e *Escrow) *Event {
	evt := newEscrowEvent(EventTypeRefunded, e)
	if e != nil {
		evt.Attributes["depositor"] = e.Depositor
		evt.Attributes["total_amount"] = strconv.FormatInt(e.TotalAmount, 10)
		evt.Attributes["completed_at"] = strconv.FormatInt(e.CompletedAt.Unix(), 10)
	}
	return evt
}

func newEscrowEvent(eventType string, e *Escrow) *Event {
	evt := &Event{Type: eventType, Attributes: make(map[string]string)}
	if e != nil {
		evt.EscrowID = e.ID
		evt.Attributes["id"] = strconv.FormatUint(e.ID, 10)
	}
	return evt
}
