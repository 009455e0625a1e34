package reconcile

// OutcomeStatus 单条记录的调和结果
type OutcomeStatus string

const (
	// OutcomePersisted 已写入（新插入或原地更新）
	OutcomePersisted OutcomeStatus = "persisted"
	// OutcomeSkipped 内容不完整被丢弃（新记录）或未更新（已有记录），非致命
	OutcomeSkipped OutcomeStatus = "skipped"
	// OutcomeFatal 结构性错误，整个事务回滚
	OutcomeFatal OutcomeStatus = "fatal"
)

// Outcome 把"静默跳过 vs 抛错回滚"的双轨策略显式化：
// 每条记录都有一个可观察的结果，而不是从控制流里猜。
type Outcome struct {
	Kind   string
	Ref    EntityRef
	Status OutcomeStatus
	ID     uint   // persisted 时的持久化 id
	Reason string // skipped 时的原因
	Err    error  // fatal 时的错误
}
