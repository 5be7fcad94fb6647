package mail

import (
	"fmt"
	"io"
	"log"
	"sync"

	"gopkg.in/gomail.v2"

	"guest_tracker/config"
)

// Inline 以 cid:Name 在 HTML 中引用的内嵌图片
type Inline struct {
	Name string
	Data []byte
}

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Inline  []Inline
}

type Sender interface {
	Send(msg Message) error
}

// New 没配 SMTP 时退回只写日志的发送器
func New(cfg config.SMTPConfig) Sender {
	if !cfg.Enabled() {
		return NoEmail{}
	}
	return &SMTP{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.Username,
		Password: cfg.Password,
		From:     cfg.Sender(),
		FromName: cfg.AppName,
	}
}

type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

func (s *SMTP) compose(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.From, s.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}
	for _, img := range msg.Inline {
		data := img.Data
		m.Embed(img.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}), gomail.SetHeader(map[string][]string{"Content-Type": {"image/png"}}))
	}
	return m
}

func (s *SMTP) Send(msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("mail: empty recipient")
	}
	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(s.compose(msg)); err != nil {
		log.Printf("[mail] send to %s failed: %v", msg.To, err)
		return fmt.Errorf("send mail: %w", err)
	}
	log.Printf("[mail] sent %q to %s", msg.Subject, msg.To)
	return nil
}

// NoEmail 开发环境：只打印
type NoEmail struct{}

func (NoEmail) Send(msg Message) error {
	log.Printf("[DEV] mail to %s: %s (%d inline)", msg.To, msg.Subject, len(msg.Inline))
	if msg.Text != "" {
		log.Printf("[DEV] %s", msg.Text)
	}
	return nil
}

// Recorder keeps every message in memory. Used by tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

func (r *Recorder) Send(msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}
