// Package scale поддерживает живое показание последовательных весов.
package scale

import (
	"errors"
	"io"
	"regexp"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/Mango070919/MeatDepotApp-sub001/internal/model"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/serialport"
)

// MaxPlausibleGrams — порог фильтра правдоподобия: показание от 100 кг
// и выше считается следствием искажённого потока байтов и отбрасывается.
const MaxPlausibleGrams = 100_000.0

// ErrAlreadyConnected возвращается при повторном подключении уже живой связи.
var ErrAlreadyConnected = errors.New("scale already connected")

// весы передают показание открытым текстом: первое десятичное число
// в чанке интерпретируется как килограммы.
var weightToken = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Link держит соединение с весами и последнее принятое показание.
// Цикл чтения работает в отдельной горутине и никогда не трогает
// корзину: наружу отдаётся только само значение веса.
type Link struct {
	portName string
	open     serialport.Opener
	logger   *zap.Logger

	mu         sync.RWMutex
	port       serialport.Port
	state      model.DeviceState
	grams      float64
	hasReading bool
	stale      bool
}

// NewLink создаёт связь с весами на указанном порту. Соединение не
// устанавливается до явного вызова Connect.
func NewLink(portName string, open serialport.Opener, logger *zap.Logger) *Link {
	return &Link{
		portName: portName,
		open:     open,
		logger:   logger,
		state:    model.DeviceDisconnected,
	}
}

// Connect открывает порт на штатной скорости и запускает цикл чтения.
// Связь не переподключается сама: после обрыва оператор инициирует
// повторный Connect.
func (l *Link) Connect() error {
	l.mu.Lock()
	if l.state == model.DeviceConnected || l.state == model.DeviceConnecting {
		l.mu.Unlock()
		return ErrAlreadyConnected
	}
	l.state = model.DeviceConnecting
	l.mu.Unlock()

	port, err := l.open(l.portName, serialport.DefaultBaudRate)
	if err != nil {
		l.mu.Lock()
		l.state = model.DeviceDisconnected
		l.mu.Unlock()
		return err
	}

	l.mu.Lock()
	l.port = port
	l.state = model.DeviceConnected
	l.stale = false
	l.mu.Unlock()

	go l.readLoop(port)

	return nil
}

// readLoop читает чанки до закрытия потока или фатальной ошибки порта.
func (l *Link) readLoop(port serialport.Port) {
	buf := make([]byte, 64)
	for {
		n, err := port.Read(buf)
		if n > 0 {
			l.accept(string(buf[:n]))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				l.logger.Warn("scale read failed", zap.Error(err))
			}
			l.markDisconnected()
			return
		}
	}
}

// accept разбирает чанк и обновляет показание. Чанк без числа и
// неправдоподобное значение игнорируются, последнее принятое показание
// при этом сохраняется.
func (l *Link) accept(chunk string) {
	token := weightToken.FindString(chunk)
	if token == "" {
		return
	}

	kg, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return
	}

	grams := kg * 1000
	if grams >= MaxPlausibleGrams {
		l.logger.Warn("scale reading rejected", zap.Float64("grams", grams))
		return
	}

	l.mu.Lock()
	l.grams = grams
	l.hasReading = true
	l.stale = false
	l.mu.Unlock()
}

func (l *Link) markDisconnected() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port != nil {
		_ = l.port.Close()
		l.port = nil
	}
	l.state = model.DeviceDisconnected
	// Последнее показание остаётся на экране, но помечается устаревшим.
	if l.hasReading {
		l.stale = true
	}
}

// CurrentWeightGrams возвращает последнее принятое показание в граммах.
// Второе значение ложно, если весы ещё ни разу не передали число.
func (l *Link) CurrentWeightGrams() (float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.grams, l.hasReading
}

// State возвращает состояние подключения весов.
func (l *Link) State() model.DeviceState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Stale сообщает, что показание осталось от разорванного соединения.
func (l *Link) Stale() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stale
}

// Close разрывает соединение с весами.
func (l *Link) Close() error {
	l.markDisconnected()
	return nil
}
