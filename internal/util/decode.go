package util

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// base64 로 저장된 설정 값을 제자리에서 복원. 빈 값은 그대로 둔다.
func Decode(s *string) error {
	if s == nil || *s == "" {
		return nil
	}

	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(*s))
	if err != nil {
		return fmt.Errorf("base64 decode: %w", err)
	}
	*s = string(b)
	return nil
}

// Decode 의 역함수. 설정 파일에 값을 넣을 때 사용
func Encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
