package eventbus

type CourseEventType string

const (
	CourseEventSaved        CourseEventType = "Saved"
	CourseEventDeleted      CourseEventType = "Deleted"
	CourseEventAssetCleanup CourseEventType = "AssetCleanup"
)

// CourseEvent 课程保存流程产生的事件。
// AssetCleanup 只在事务提交之后发布，携带待删除的旧资产路径。
type CourseEvent struct {
	Type       CourseEventType
	CourseID   uint
	TeacherID  uint
	Status     string
	AssetPaths []string
}

type CourseEventHandler = Handler[CourseEvent]
type CourseEventBus = Bus[CourseEventType, CourseEvent]

func NewCourseEventBus() *CourseEventBus {
	return NewBus[CourseEventType, CourseEvent]()
}
