// Package serialport предоставляет доступ к последовательным портам
// для периферийных устройств терминала: весов и чекового принтера.
package serialport

import (
	"errors"
	"fmt"
	"io"

	serial "go.bug.st/serial"
)

// DefaultBaudRate — скорость обмена, общая для весов и принтера.
const DefaultBaudRate = 9600

// ErrDeviceUnavailable возвращается, когда порт устройства не задан в конфигурации.
var (
	ErrDeviceUnavailable = errors.New("serial device not configured")
	// ErrConnectionFailed возвращается, если порт не удалось открыть.
	ErrConnectionFailed = errors.New("serial connection failed")
)

// Port описывает байтовый канал к последовательному устройству.
// Интерфейс позволяет подменять реальный порт заглушкой в тестах.
type Port interface {
	io.ReadWriteCloser
}

// Opener открывает последовательный порт по имени устройства.
type Opener func(name string, baud int) (Port, error)

// Open открывает реальный последовательный порт в режиме 8N1.
func Open(name string, baud int) (Port, error) {
	if name == "" {
		return nil, ErrDeviceUnavailable
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrConnectionFailed, name, err)
	}

	return p, nil
}
