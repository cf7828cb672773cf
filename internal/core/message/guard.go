package message

// Releaser 消息所属的回收方
//
// 通常是主题：Release 递减引用计数并在归零时归还内存池。
type Releaser interface {
	Release(msg *Message) bool
}

// Guard 作用域引用
//
// 创建时获取一次引用，Release 通过 Releaser 只归还一次，
// 适合配合 defer 覆盖所有返回路径。
type Guard struct {
	msg      *Message
	owner    Releaser
	released bool
}

// NewGuard 获取 msg 的引用
func NewGuard(msg *Message, owner Releaser) Guard {
	msg.Acquire()
	return Guard{msg: msg, owner: owner}
}

// Message 返回被保护的消息
func (g *Guard) Message() *Message {
	return g.msg
}

// Release 归还引用，重复调用为空操作
func (g *Guard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.owner.Release(g.msg)
}
