// Package scanner отличает ввод сканера штрихкодов от ручного набора.
//
// Сканер работает в режиме эмуляции клавиатуры и не имеет собственного
// канала ввода: терминал видит общий поток нажатий клавиш. Машинная
// «очередь» символов приходит значительно быстрее человеческого набора,
// поэтому завершённый терминатором быстрый пакет считается сканом.
package scanner

import "time"

// DebounceWindow — максимальный интервал между символами одного скана.
// Пауза дольше окна означает ручной набор, и буфер сбрасывается.
const DebounceWindow = 50 * time.Millisecond

// minScanLength — минимальная длина штрихкода; более короткий пакет
// с терминатором считается случайным нажатием Enter.
const minScanLength = 3

// TerminatorKey — клавиша, которой сканер завершает передачу кода.
const TerminatorKey = "Enter"

// Decoder накапливает символы быстрого пакета и выдаёт завершённый
// штрихкод. Буфер принадлежит декодеру; единственный внешний способ
// повлиять на него — явная приостановка координатором.
//
// Decoder не потокобезопасен: им владеет координатор продажи и
// обращается к нему только под собственной блокировкой.
type Decoder struct {
	buf       []rune
	lastKeyAt time.Time
	suspended bool
}

// NewDecoder создаёт декодер с пустым буфером.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Suspend приостанавливает декодер на время ручного редактирования
// числового поля, чтобы скан не смешался с набором оператора.
func (d *Decoder) Suspend() {
	d.suspended = true
	d.buf = d.buf[:0]
}

// Resume возобновляет работу декодера.
func (d *Decoder) Resume() {
	d.suspended = false
}

// Suspended сообщает, приостановлен ли декодер.
func (d *Decoder) Suspended() bool {
	return d.suspended
}

// OnKey обрабатывает одно нажатие клавиши в момент at и возвращает
// завершённый штрихкод, если нажатие закончило быстрый пакет.
//
// Просроченный буфер сбрасывается лениво, при следующем нажатии:
// наблюдаемое поведение совпадает с таймером, который стирает буфер
// по истечении окна, но не требует фоновой горутины.
func (d *Decoder) OnKey(key string, at time.Time) (string, bool) {
	if d.suspended {
		return "", false
	}

	if len(d.buf) > 0 && at.Sub(d.lastKeyAt) > DebounceWindow {
		d.buf = d.buf[:0]
	}

	if key == TerminatorKey {
		code := string(d.buf)
		d.buf = d.buf[:0]
		if len(code) <= minScanLength {
			// Случайный Enter: молча игнорируем.
			return "", false
		}
		return code, true
	}

	r, ok := printableKey(key)
	if !ok {
		return "", false
	}

	d.buf = append(d.buf, r)
	d.lastKeyAt = at
	return "", false
}

// printableKey возвращает символ клавиши, если нажатие печатное.
// Служебные клавиши (Shift, Tab, стрелки) приходят многосимвольными
// именами и в штрихкод не попадают.
func printableKey(key string) (rune, bool) {
	runes := []rune(key)
	if len(runes) != 1 {
		return 0, false
	}
	if runes[0] < ' ' {
		return 0, false
	}
	return runes[0], true
}
