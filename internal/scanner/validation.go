package scanner

// IsValidCode проверяет, что строка похожа на штрихкод: цифры и заглавные
// латинские буквы разумной длины. Проверка отсекает мусорные пакеты до
// обращения к каталогу.
func IsValidCode(code string) bool {
	if len(code) < 4 || len(code) > 32 {
		return false
	}
	for _, r := range code {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'A' && r <= 'Z':
		case r == '-':
		default:
			return false
		}
	}
	return true
}
