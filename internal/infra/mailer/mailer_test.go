package mailer

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	got any
	err error
}

func (f *fakePublisher) Publish(_ context.Context, message any) error {
	f.got = message
	return f.err
}

func TestQueued_Send(t *testing.T) {
	pub := &fakePublisher{}
	m := &Queued{Publisher: pub}

	msg := OTPEmail("asha@studio.in", "Asha", "042917", 10*time.Minute)
	require.NoError(t, m.Send(context.Background(), msg))
	assert.Equal(t, msg, pub.got)

	pub.err = errors.New("channel closed")
	assert.Error(t, m.Send(context.Background(), msg))
}

type recordingMailer struct {
	sent []Message
	err  error
}

func (r *recordingMailer) Send(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func TestQueued_FallsBackWhenPublishFails(t *testing.T) {
	pub := &fakePublisher{err: errors.New("channel/connection is not open")}
	direct := &recordingMailer{}
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	m := &Queued{Publisher: pub, Fallback: direct, Logger: logger}

	msg := OTPEmail("asha@studio.in", "Asha", "042917", 10*time.Minute)
	require.NoError(t, m.Send(context.Background(), msg))
	require.Len(t, direct.sent, 1)
	assert.Equal(t, msg, direct.sent[0])

	direct.err = errors.New("smtp down")
	err := m.Send(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not open")
	assert.Contains(t, err.Error(), "smtp down")

	pub.err = nil
	require.NoError(t, m.Send(context.Background(), msg))
	assert.Len(t, direct.sent, 2)
}

// smtpServer answers just enough of the protocol for one delivery.
type smtpServer struct {
	ln    net.Listener
	mu    sync.Mutex
	data  string
	conns []net.Conn
}

func newSMTPServer(t *testing.T, silent bool) *smtpServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &smtpServer{ln: ln}
	t.Cleanup(func() {
		_ = ln.Close()
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, c := range s.conns {
			_ = c.Close()
		}
	})

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			if silent {
				s.mu.Lock()
				s.conns = append(s.conns, conn)
				s.mu.Unlock()
				continue
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *smtpServer) serve(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 localhost ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		switch cmd := strings.ToUpper(strings.Fields(line + " x")[0]); cmd {
		case "EHLO", "HELO", "MAIL", "RCPT":
			_ = tp.PrintfLine("250 OK")
		case "DATA":
			_ = tp.PrintfLine("354 go ahead")
			body, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.data = string(body)
			s.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("502 unsupported")
		}
	}
}

func (s *smtpServer) mailer() *SMTP {
	host, port, _ := net.SplitHostPort(s.ln.Addr().String())
	return &SMTP{Host: host, Port: port, From: "studio@studio.in"}
}

func TestSMTP_Send(t *testing.T) {
	srv := newSMTPServer(t, false)

	err := srv.mailer().Send(context.Background(), Message{To: "asha@studio.in", Subject: "Welcome", Body: "Namaste"})
	require.NoError(t, err)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.Contains(t, srv.data, "Subject: Welcome")
	assert.Contains(t, srv.data, "To: asha@studio.in")
	assert.Contains(t, srv.data, "Namaste")
}

func TestSMTP_SendHonoursContext(t *testing.T) {
	srv := newSMTPServer(t, true)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := srv.mailer().Send(ctx, Message{To: "asha@studio.in", Subject: "Welcome", Body: "Namaste"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLog_Send(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	m := &Log{Logger: logger}
	require.NoError(t, m.Send(context.Background(), Message{To: "a@b.c", Subject: "Hello", Body: "code 123456"}))

	assert.Contains(t, buf.String(), "code 123456")
	assert.Contains(t, buf.String(), "a@b.c")
}

func TestDecode(t *testing.T) {
	msg, err := Decode([]byte(`{"to":"a@b.c","subject":"Hi","body":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", msg.To)

	_, err = Decode([]byte(`{"subject":"Hi"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestTemplates(t *testing.T) {
	otp := OTPEmail("a@b.c", "Asha", "123456", 10*time.Minute)
	assert.Contains(t, otp.Body, "123456")
	assert.Contains(t, otp.Body, "10 minutes")

	at := time.Date(2026, 5, 10, 7, 0, 0, 0, time.UTC)
	booking := BookingEmail("a@b.c", "Asha", "Sunrise Flow", at)
	assert.Equal(t, "Booking confirmed: Sunrise Flow", booking.Subject)
	assert.Contains(t, booking.Body, "Sun 10 May 2026, 07:00 UTC")
}
