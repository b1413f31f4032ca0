package validation

import (
	"fmt"
	"strings"
)

const forbiddenFileNameChars = `/\:*?"<>|`

// ValidateFileName проверяет имя файла на границе: пустые и состоящие
// из пробелов имена отклоняются, как и имена с запрещенными символами.
// Сервисы считают, что к ним приходят только валидные имена.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("filename must not be empty")
	}
	if strings.ContainsAny(name, forbiddenFileNameChars) {
		return fmt.Errorf("filename contains forbidden characters: %s", forbiddenFileNameChars)
	}
	return nil
}
