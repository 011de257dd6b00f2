package cluster

import "fmt"

// Envelope 会话上传输的帧，Body 只能是 *Connect 或 *Payload
type Envelope struct {
	Body Body
}

// Body 帧内容的封闭联合类型
type Body interface {
	isBody()
}

// Connect 握手帧，携带发起方对外公布的地址
type Connect struct {
	Host string
	Port int32
}

// Payload 应用消息，对会话层不透明
type Payload struct {
	Kind string
	Data []byte
}

func (*Connect) isBody() {}
func (*Payload) isBody() {}

func NewConnect(host string, port int32) *Envelope {
	return &Envelope{Body: &Connect{Host: host, Port: port}}
}

func NewPayload(kind string, data []byte) *Envelope {
	return &Envelope{Body: &Payload{Kind: kind, Data: data}}
}

func (e *Envelope) GetConnect() *Connect {
	if e == nil {
		return nil
	}
	c, _ := e.Body.(*Connect)
	return c
}

func (e *Envelope) GetPayload() *Payload {
	if e == nil {
		return nil
	}
	p, _ := e.Body.(*Payload)
	return p
}

func (e *Envelope) String() string {
	if e == nil {
		return "<nil>"
	}
	switch b := e.Body.(type) {
	case *Connect:
		return fmt.Sprintf("Connect{%s:%d}", b.Host, b.Port)
	case *Payload:
		return fmt.Sprintf("Payload{kind=%s, %d bytes}", b.Kind, len(b.Data))
	default:
		return "Envelope{}"
	}
}
