package printer

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Mango070919/MeatDepotApp-sub001/internal/model"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/serialport"
)

// ErrNotConnected возвращается при попытке печати без подключённого принтера.
var (
	ErrNotConnected = errors.New("printer not connected")
	// ErrPrintBusy возвращается, когда предыдущая печать ещё не завершена.
	ErrPrintBusy = errors.New("print already in progress")
	// ErrPrintFailure возвращается при ошибке записи в порт; оставшаяся
	// часть чека при этом не передаётся.
	ErrPrintFailure = errors.New("print failed")
	// ErrAlreadyConnected возвращается при повторном подключении принтера.
	ErrAlreadyConnected = errors.New("printer already connected")
)

// Driver доставляет закодированный чек на принтер. Записи одного чека
// строго последовательны, параллельная печать двух чеков запрещена:
// перемешивание управляющих кодов ломает форматирование ленты.
type Driver struct {
	portName string
	open     serialport.Opener
	logger   *zap.Logger

	mu       sync.Mutex
	port     serialport.Port
	state    model.DeviceState
	printing bool
}

// NewDriver создаёт драйвер принтера на указанном порту.
func NewDriver(portName string, open serialport.Opener, logger *zap.Logger) *Driver {
	return &Driver{
		portName: portName,
		open:     open,
		logger:   logger,
		state:    model.DeviceDisconnected,
	}
}

// Connect открывает порт принтера на штатной скорости.
func (d *Driver) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == model.DeviceConnected {
		return ErrAlreadyConnected
	}
	d.state = model.DeviceConnecting

	port, err := d.open(d.portName, serialport.DefaultBaudRate)
	if err != nil {
		d.state = model.DeviceDisconnected
		return err
	}

	d.port = port
	d.state = model.DeviceConnected
	return nil
}

// State возвращает состояние подключения принтера.
func (d *Driver) State() model.DeviceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Print кодирует продажу и передаёт её на принтер. Каждая управляющая
// операция записывается отдельно, следующая запись начинается только
// после завершения предыдущей. Первая же ошибка записи прерывает
// передачу и переводит принтер в состояние Disconnected.
func (d *Driver) Print(tx model.Transaction, profile model.BusinessProfile) error {
	d.mu.Lock()
	if d.state != model.DeviceConnected {
		d.mu.Unlock()
		return ErrNotConnected
	}
	if d.printing {
		d.mu.Unlock()
		return ErrPrintBusy
	}
	d.printing = true
	port := d.port
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.printing = false
		d.mu.Unlock()
	}()

	for _, op := range Encode(tx, profile) {
		if _, err := port.Write(op); err != nil {
			d.markDisconnected()
			d.logger.Error("printer write failed", zap.Error(err))
			return fmt.Errorf("%w: %w", ErrPrintFailure, err)
		}
	}

	return nil
}

func (d *Driver) markDisconnected() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port != nil {
		_ = d.port.Close()
		d.port = nil
	}
	d.state = model.DeviceDisconnected
}

// Close разрывает соединение с принтером.
func (d *Driver) Close() error {
	d.markDisconnected()
	return nil
}
