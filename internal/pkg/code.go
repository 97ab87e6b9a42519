package pkg

import (
	cryptoRand "crypto/rand"
	"fmt"
	"html"
	"math/big"
	"strings"
	"time"
)

func RandDigits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		x, err := cryptoRand.Int(cryptoRand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + x.Int64()))
	}
	return b.String(), nil
}

// EmailCodeHTML 验证码邮件正文
func EmailCodeHTML(purpose, code string, ttl time.Duration) string {
	return fmt.Sprintf(`<p>Hello,</p><p>Your %s code is <b style="font-size:20px">%s</b>.</p><p>It expires in %d minutes. If you did not ask for it, ignore this email.</p>`,
		html.EscapeString(purpose), html.EscapeString(code), int(ttl/time.Minute))
}
