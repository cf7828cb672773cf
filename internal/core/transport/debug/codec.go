package debug

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/dep2p/go-r2p/pkg/types"
)

// 控制命令字符
const (
	CmdAdvertise         byte = 'p'
	CmdSubscribeRequest  byte = 's'
	CmdSubscribeResponse byte = 'e'
	CmdStop              byte = 't'
	CmdReboot            byte = 'r'
	CmdBootload          byte = 'b'
)

const hexDigits = "0123456789ABCDEF"

// Frame 解码后的帧
//
// Topic 为空表示控制帧，此时 Cmd 有效。
type Frame struct {
	Deadline    time.Time
	Topic       string
	Payload     []byte
	Cmd         byte
	QueueLength uint8
	Module      string
	Target      string
}

// IsMgmt 是否为控制帧
func (f *Frame) IsMgmt() bool {
	return f.Topic == ""
}

// ============================================================================
//                              校验和
// ============================================================================

type checksum byte

func (c *checksum) add(b ...byte) {
	for _, v := range b {
		*c += checksum(v)
	}
}

func (c *checksum) addString(s string) {
	for i := 0; i < len(s); i++ {
		*c += checksum(s[i])
	}
}

func (c checksum) value() byte {
	return byte(^c + 1)
}

// ============================================================================
//                              编码
// ============================================================================

func appendHex(dst []byte, b ...byte) []byte {
	for _, v := range b {
		dst = append(dst, hexDigits[v>>4], hexDigits[v&0x0F])
	}
	return dst
}

func deadlineBytes(deadline time.Time) [8]byte {
	var raw [8]byte
	if !deadline.IsZero() {
		binary.BigEndian.PutUint64(raw[:], uint64(deadline.UnixNano()))
	}
	return raw
}

func appendHeader(dst []byte, cs *checksum, deadline time.Time) []byte {
	raw := deadlineBytes(deadline)
	cs.add(raw[:]...)
	dst = append(dst, '@')
	dst = appendHex(dst, raw[:]...)
	return append(dst, ':')
}

func appendName(dst []byte, cs *checksum, name string) []byte {
	n := byte(len(name))
	cs.add(n)
	cs.addString(name)
	dst = appendHex(dst, n)
	return append(dst, name...)
}

func appendTrailer(dst []byte, cs checksum) []byte {
	dst = append(dst, ':')
	dst = appendHex(dst, cs.value())
	return append(dst, '\r', '\n')
}

// AppendData 编码数据帧
func AppendData(dst []byte, deadline time.Time, topic string, payload []byte) []byte {
	var cs checksum
	dst = appendHeader(dst, &cs, deadline)
	dst = appendName(dst, &cs, topic)
	dst = append(dst, ':')

	n := byte(len(payload))
	cs.add(n)
	cs.add(payload...)
	dst = appendHex(dst, n)
	dst = appendHex(dst, payload...)
	return appendTrailer(dst, cs)
}

// AppendPubSub 编码通告/订阅请求/订阅响应控制帧
func AppendPubSub(dst []byte, deadline time.Time, cmd byte, queueLength uint8, module, topic string) []byte {
	var cs checksum
	dst = appendHeader(dst, &cs, deadline)
	dst = append(dst, '0', '0', ':', cmd)
	cs.add(cmd)
	if cmd == CmdSubscribeRequest {
		cs.add(queueLength)
		dst = appendHex(dst, queueLength)
	}
	dst = append(dst, ':')
	dst = appendName(dst, &cs, module)
	dst = append(dst, ':')
	dst = appendName(dst, &cs, topic)
	return appendTrailer(dst, cs)
}

// AppendCommand 编码停止/重启/引导控制帧
func AppendCommand(dst []byte, deadline time.Time, cmd byte) []byte {
	var cs checksum
	dst = appendHeader(dst, &cs, deadline)
	dst = append(dst, '0', '0', ':', cmd)
	cs.add(cmd)
	return appendTrailer(dst, cs)
}

// ============================================================================
//                              解码
// ============================================================================

// Decoder 从字节流解码帧
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder 创建解码器
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next 读取下一帧
//
// 帧错误返回 ErrFrame 或 ErrChecksum，此时可以继续调用 Next 重新同步；
// 底层读错误原样返回。
func (d *Decoder) Next() (Frame, error) {
	var f Frame
	var cs checksum

	if err := d.skipTo('@'); err != nil {
		return f, err
	}
	var raw [8]byte
	if err := d.readHex(raw[:]); err != nil {
		return f, err
	}
	cs.add(raw[:]...)
	if ns := binary.BigEndian.Uint64(raw[:]); ns != 0 {
		f.Deadline = time.Unix(0, int64(ns))
	}
	if err := d.expect(':'); err != nil {
		return f, err
	}

	n, err := d.readByte()
	if err != nil {
		return f, err
	}
	if int(n) > types.TopicNameMaxLen {
		return f, fmt.Errorf("%w: topic length %d", ErrFrame, n)
	}
	if n > 0 {
		return d.readData(f, cs, n)
	}
	if err := d.expect(':'); err != nil {
		return f, err
	}
	return d.readMgmt(f, cs)
}

func (d *Decoder) readData(f Frame, cs checksum, n byte) (Frame, error) {
	topic, err := d.readString(int(n))
	if err != nil {
		return f, err
	}
	cs.add(n)
	cs.addString(topic)
	f.Topic = topic

	if err := d.expect(':'); err != nil {
		return f, err
	}
	size, err := d.readByte()
	if err != nil {
		return f, err
	}
	cs.add(size)
	f.Payload = make([]byte, size)
	if err := d.readHex(f.Payload); err != nil {
		return f, err
	}
	cs.add(f.Payload...)
	return f, d.checkTrailer(cs)
}

func (d *Decoder) readMgmt(f Frame, cs checksum) (Frame, error) {
	c, err := d.r.ReadByte()
	if err != nil {
		return f, err
	}
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	f.Cmd = c
	cs.add(c)

	switch c {
	case CmdAdvertise, CmdSubscribeRequest, CmdSubscribeResponse:
		if c == CmdSubscribeRequest {
			q, err := d.readByte()
			if err != nil {
				return f, err
			}
			if q == 0 {
				return f, fmt.Errorf("%w: zero queue length", ErrFrame)
			}
			cs.add(q)
			f.QueueLength = q
		}
		if f.Module, err = d.readName(&cs, types.ModuleNameMaxLen); err != nil {
			return f, err
		}
		if f.Target, err = d.readName(&cs, types.TopicNameMaxLen); err != nil {
			return f, err
		}
	case CmdStop, CmdReboot, CmdBootload:
	default:
		return f, fmt.Errorf("%w: unknown command %q", ErrFrame, c)
	}
	return f, d.checkTrailer(cs)
}

// readName 读取 ":<len><name>"
func (d *Decoder) readName(cs *checksum, maxLen int) (string, error) {
	if err := d.expect(':'); err != nil {
		return "", err
	}
	n, err := d.readByte()
	if err != nil {
		return "", err
	}
	if n == 0 || int(n) > maxLen {
		return "", fmt.Errorf("%w: name length %d", ErrFrame, n)
	}
	s, err := d.readString(int(n))
	if err != nil {
		return "", err
	}
	cs.add(n)
	cs.addString(s)
	return s, nil
}

func (d *Decoder) checkTrailer(cs checksum) error {
	if err := d.expect(':'); err != nil {
		return err
	}
	got, err := d.readByte()
	if err != nil {
		return err
	}
	if got != cs.value() {
		return fmt.Errorf("%w: got %02X, want %02X", ErrChecksum, got, cs.value())
	}
	return nil
}

func (d *Decoder) skipTo(c byte) error {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return err
		}
		if b == c {
			return nil
		}
	}
}

func (d *Decoder) expect(c byte) error {
	b, err := d.r.ReadByte()
	if err != nil {
		return err
	}
	if b != c {
		if b == '@' {
			_ = d.r.UnreadByte()
		}
		return fmt.Errorf("%w: expected %q, got %q", ErrFrame, c, b)
	}
	return nil
}

func (d *Decoder) readString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (d *Decoder) readHex(dst []byte) error {
	for i := range dst {
		b, err := d.readByte()
		if err != nil {
			return err
		}
		dst[i] = b
	}
	return nil
}

// readByte 读取两位十六进制数
func (d *Decoder) readByte() (byte, error) {
	var v byte
	for range 2 {
		c, err := d.r.ReadByte()
		if err != nil {
			return 0, err
		}
		n, ok := fromHex(c)
		if !ok {
			if c == '@' {
				_ = d.r.UnreadByte()
			}
			return 0, fmt.Errorf("%w: bad hex digit %q", ErrFrame, c)
		}
		v = v<<4 | n
	}
	return v, nil
}

func fromHex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
