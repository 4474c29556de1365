package sps

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tarm/serial"
)

// Transport is the byte-stream capability the protocol engine drives. The
// engine owns the transport exclusively for the process lifetime; ReadByte
// blocks until a byte arrives or the deadline passes, in which case it
// returns os.ErrDeadlineExceeded.
type Transport interface {
	Write(p []byte) (n int, err error)
	ReadByte(deadline time.Time) (byte, error)
	FlushInput() error
	Close() error
}

// Baud is the fixed serial line rate of the sensor.
const Baud = 115200

// Device is the basic representation of a physical SPS030 device, connected
// either directly via serial or through a transparent serial-over-TCP bridge.
type Device struct {
	conn  io.ReadWriteCloser
	wlock sync.Mutex

	connected bool
	done      chan struct{}

	bytes chan byte

	errOnce sync.Once
	readErr error
}

// NewDevice returns an unconnected Device.
func NewDevice() *Device {
	return &Device{}
}

// Connect attaches to the sensor via a serial device or a tcp socket.
// Use socket://[host]:[port] for TCP or a device path for direct serial.
func (d *Device) Connect(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return err
	}

	var conn io.ReadWriteCloser
	if (u.Scheme == "socket") || (u.Scheme == "tcp") {
		conn, err = net.Dial("tcp", u.Host)
		if err != nil {
			return err
		}
		conn.(*net.TCPConn).SetKeepAlive(true)
		conn.(*net.TCPConn).SetKeepAlivePeriod(30 * time.Second)
	} else if (u.Scheme == "file") || (u.Scheme == "") {
		conn, err = serial.OpenPort(&serial.Config{Name: u.Path, Baud: Baud, Size: 8, Parity: serial.ParityNone, StopBits: serial.Stop1})
		if err != nil {
			return err
		}
	} else {
		return fmt.Errorf("can not find a valid connection string in %q", link)
	}

	d.Attach(conn)
	return nil
}

// Attach takes ownership of an already-open connection and starts the read
// pump. Useful for tests and custom transports.
func (d *Device) Attach(conn io.ReadWriteCloser) {
	d.conn = conn
	d.connected = true
	d.done = make(chan struct{})
	d.bytes = make(chan byte, 512)

	go d.readLoop()
}

// Close closes the Device, closing the underlying serial or network
// connection.
func (d *Device) Close() error {
	d.wlock.Lock()
	defer d.wlock.Unlock()

	if !d.connected {
		return io.ErrClosedPipe
	}
	d.connected = false
	close(d.done)
	return d.conn.Close()
}

func (d *Device) Write(b []byte) (int, error) {
	d.wlock.Lock()
	defer d.wlock.Unlock()
	if !d.connected {
		return 0, io.EOF
	}
	n, err := d.conn.Write(b)
	log.Debugf("Write b='%# x', n=%v, err=%v", b, n, err)
	return n, err
}

// ReadByte returns the next byte from the line, waiting until the deadline
// at the latest.
func (d *Device) ReadByte(deadline time.Time) (byte, error) {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case b, ok := <-d.bytes:
		if !ok {
			return 0, d.failure()
		}
		return b, nil
	case <-timer.C:
		return 0, os.ErrDeadlineExceeded
	}
}

// FlushInput discards everything the line has delivered so far.
func (d *Device) FlushInput() error {
	for {
		select {
		case _, ok := <-d.bytes:
			if !ok {
				return d.failure()
			}
		default:
			return nil
		}
	}
}

func (d *Device) setFailure(err error) {
	d.errOnce.Do(func() { d.readErr = err })
}

func (d *Device) failure() error {
	d.setFailure(io.EOF)
	return d.readErr
}

// readLoop pumps the connection into the byte channel until the connection
// fails or the device is closed.
func (d *Device) readLoop() {
	buf := make([]byte, 256)
	for {
		n, err := d.conn.Read(buf)
		if n > 0 {
			log.Debugf("Read b='%# x', n=%v, err=%v", buf[:n], n, err)
			for i := 0; i < n; i++ {
				select {
				case d.bytes <- buf[i]:
				case <-d.done:
					return
				}
			}
		}
		if err != nil {
			select {
			case <-d.done:
			default:
				log.Errorf("read loop: %v", err)
			}
			d.setFailure(err)
			close(d.bytes)
			return
		}
		select {
		case <-d.done:
			return
		default:
		}
	}
}
