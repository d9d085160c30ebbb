package serial

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jacobsa/go-serial/serial"
)

type fakeDevice struct {
	reads  [][]byte
	err    error
	closed bool
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	if len(d.reads) == 0 {
		return 0, d.err
	}
	n := copy(p, d.reads[0])
	d.reads = d.reads[1:]
	return n, nil
}

func (d *fakeDevice) Write(p []byte) (int, error) { return len(p), nil }
func (d *fakeDevice) Close() error                { d.closed = true; return nil }

func withDevice(t *testing.T, dev *fakeDevice) *serial.OpenOptions {
	t.Helper()
	var got serial.OpenOptions
	prev := open
	open = func(o serial.OpenOptions) (io.ReadWriteCloser, error) {
		got = o
		return dev, nil
	}
	t.Cleanup(func() { open = prev })
	return &got
}

func TestOpen_Options(t *testing.T) {
	got := withDevice(t, &fakeDevice{})

	p, err := Open(Config{PortName: "/dev/ttyACM0", BaudRate: 1000000, ReadTimeout: 250 * time.Millisecond})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if p.Name() != "/dev/ttyACM0" {
		t.Errorf("Name = %q", p.Name())
	}
	if got.BaudRate != 1000000 || got.DataBits != 8 || got.StopBits != 1 {
		t.Errorf("options = %+v", *got)
	}
	if got.MinimumReadSize != 0 || got.InterCharacterTimeout != 300 {
		t.Errorf("MinimumReadSize = %d, InterCharacterTimeout = %d, want 0, 300",
			got.MinimumReadSize, got.InterCharacterTimeout)
	}
}

func TestOptions_TimeoutFloor(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want uint
	}{
		{0, 100},
		{10 * time.Millisecond, 100},
		{100 * time.Millisecond, 100},
		{time.Second, 1000},
	}
	for _, tt := range tests {
		if got := options(Config{PortName: "x", ReadTimeout: tt.in}).InterCharacterTimeout; got != tt.want {
			t.Errorf("ReadTimeout %v: InterCharacterTimeout = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("Open() without port name succeeded")
	}

	cause := errors.New("permission denied")
	prev := open
	open = func(serial.OpenOptions) (io.ReadWriteCloser, error) { return nil, cause }
	defer func() { open = prev }()

	if _, err := Open(Config{PortName: "/dev/ttyUSB0"}); !errors.Is(err, cause) {
		t.Errorf("Open() error = %v, want %v", err, cause)
	}
}

func TestPort_ReadTimeoutIsIdle(t *testing.T) {
	dev := &fakeDevice{reads: [][]byte{{0x7E, 0x01}}, err: io.EOF}
	withDevice(t, dev)
	p, err := Open(Config{PortName: "/dev/ttyACM0"})
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 8)
	n, err := p.Read(buf)
	if n != 2 || err != nil {
		t.Errorf("Read() = %d, %v, want 2, nil", n, err)
	}
	n, err = p.Read(buf)
	if n != 0 || err != nil {
		t.Errorf("Read() at timeout = %d, %v, want 0, nil", n, err)
	}

	dev.err = errors.New("device removed")
	if _, err := p.Read(buf); err == nil {
		t.Error("Read() error = nil after device failure")
	}

	if err := p.Close(); err != nil || !dev.closed {
		t.Errorf("Close() = %v, closed = %v", err, dev.closed)
	}
}
