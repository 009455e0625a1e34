package reconcile

import (
	"fmt"

	"k8s.io/klog/v2"
)

// Record 参与调和的入站记录
type Record interface {
	Ref() EntityRef
}

// Spec 每种实体类型接入引擎的钩子。Insert/Update/Delete 必须绑定在
// 调用方的事务上：引擎本身不开事务，原子性由外层保存流程保证。
type Spec[T Record] struct {
	// Kind 实体种类名，只用于日志与结果标注
	Kind string
	// Validate 入库门槛检查（校验门），nil 错误表示可入库
	Validate func(record T) error
	// BelongsTo 已持久化 id 是否属于当前父级范围
	BelongsTo func(id uint) (bool, error)
	// Insert 新建记录（外键已由调用方通过 IDMap 解析），返回新 id
	Insert func(record T) (uint, error)
	// Update 原地更新已持久化记录
	Update func(id uint, record T) error
	// Delete 批量删除（含应用层级联）
	Delete func(ids []uint) error
}

// Result 一次调和的产出
type Result struct {
	// Kept 幸存的持久化 id 集合（既有的和新插入的）
	Kept map[uint]struct{}
	// Created 占位符 token 到新 id 的映射
	Created map[string]uint
	// Deleted 因快照缺席而删除的 id
	Deleted []uint
	// Outcomes 每条入站记录一个结果，顺序与入站列表一致
	Outcomes []Outcome
}

// Reconcile 用入站快照调和持久化状态。
//
// 逐条处理入站记录（保持客户端给出的顺序）：
//   - 无 id 或占位符：通过校验则插入并记入 Created/Kept，
//     未通过则跳过（记日志，不中断）；
//   - 持久化 id：先验证归属（防止跨课程注入），归属失败为致命错误；
//     通过校验则更新，未通过也保留在 Kept 里——暂时不完整的旧记录
//     只是不更新，不能因此销毁。
//
// 最后删除 persisted 中未被保留的 id。删除钩子负责先删子级。
func Reconcile[T Record](spec Spec[T], persisted []uint, incoming []T) (*Result, error) {
	persistedSet := make(map[uint]struct{}, len(persisted))
	for _, id := range persisted {
		persistedSet[id] = struct{}{}
	}

	result := &Result{
		Kept:    make(map[uint]struct{}),
		Created: make(map[string]uint),
	}

	for _, record := range incoming {
		ref := record.Ref()

		if !ref.IsPersisted() {
			if err := spec.Validate(record); err != nil {
				klog.V(6).Infof("调和跳过无效新记录: kind=%s, ref=%s, reason=%v", spec.Kind, ref, err)
				result.Outcomes = append(result.Outcomes, Outcome{
					Kind: spec.Kind, Ref: ref, Status: OutcomeSkipped, Reason: err.Error(),
				})
				continue
			}
			newID, err := spec.Insert(record)
			if err != nil {
				result.Outcomes = append(result.Outcomes, Outcome{
					Kind: spec.Kind, Ref: ref, Status: OutcomeFatal, Err: err,
				})
				return result, fmt.Errorf("insert %s: %w", spec.Kind, err)
			}
			if ref.IsPending() {
				result.Created[ref.Token()] = newID
			}
			result.Kept[newID] = struct{}{}
			result.Outcomes = append(result.Outcomes, Outcome{
				Kind: spec.Kind, Ref: ref, Status: OutcomePersisted, ID: newID,
			})
			continue
		}

		id := ref.ID()
		owned, err := spec.BelongsTo(id)
		if err != nil {
			result.Outcomes = append(result.Outcomes, Outcome{
				Kind: spec.Kind, Ref: ref, Status: OutcomeFatal, Err: err,
			})
			return result, fmt.Errorf("ownership check for %s %d: %w", spec.Kind, id, err)
		}
		if !owned {
			err := fmt.Errorf("%s %d does not belong to this scope", spec.Kind, id)
			result.Outcomes = append(result.Outcomes, Outcome{
				Kind: spec.Kind, Ref: ref, Status: OutcomeFatal, Err: err,
			})
			return result, err
		}

		if err := spec.Validate(record); err != nil {
			// 已有记录校验失败：保留但不更新
			klog.V(6).Infof("调和保留未更新的旧记录: kind=%s, id=%d, reason=%v", spec.Kind, id, err)
			result.Kept[id] = struct{}{}
			result.Outcomes = append(result.Outcomes, Outcome{
				Kind: spec.Kind, Ref: ref, Status: OutcomeSkipped, ID: id, Reason: err.Error(),
			})
			continue
		}

		if err := spec.Update(id, record); err != nil {
			result.Outcomes = append(result.Outcomes, Outcome{
				Kind: spec.Kind, Ref: ref, Status: OutcomeFatal, Err: err,
			})
			return result, fmt.Errorf("update %s %d: %w", spec.Kind, id, err)
		}
		result.Kept[id] = struct{}{}
		result.Outcomes = append(result.Outcomes, Outcome{
			Kind: spec.Kind, Ref: ref, Status: OutcomePersisted, ID: id,
		})
	}

	for id := range persistedSet {
		if _, ok := result.Kept[id]; !ok {
			result.Deleted = append(result.Deleted, id)
		}
	}
	if len(result.Deleted) > 0 {
		if err := spec.Delete(result.Deleted); err != nil {
			return result, fmt.Errorf("delete %s batch: %w", spec.Kind, err)
		}
		klog.V(6).Infof("调和删除快照缺席记录: kind=%s, count=%d", spec.Kind, len(result.Deleted))
	}

	return result, nil
}
