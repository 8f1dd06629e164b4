package auth

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// ProtocolVersion - версия формата канонической строки.
// Любое изменение порядка полей или разделителей требует новой версии:
// расхождение с клиентом ломает все подписи сразу.
const ProtocolVersion = "v1"

// SigningContext - поля запроса, которые входят в подпись
type SigningContext struct {
	Method    string
	URI       string
	Timestamp string
	Body      string
}

// NewSigningContext извлекает поля подписи из буферизованного запроса
func NewSigningContext(req *BufferedRequest, timestampHeader string) (SigningContext, error) {
	body, err := req.BodyText()
	if err != nil {
		return SigningContext{}, err
	}

	return SigningContext{
		Method:    req.Method(),
		URI:       req.URI(),
		Timestamp: req.Header().Get(timestampHeader),
		Body:      body,
	}, nil
}

// CanonicalString строит строку для подписи (v1):
//
//	METHOD "\n" TIMESTAMP "\n" REQUEST-URI "\n" BODY
//
// REQUEST-URI - путь вместе с "?query", если строка запроса есть.
// Это единственное место, где собирается строка: ее используют и проверка, и клиентский Signer.
func CanonicalString(sc SigningContext) string {
	var sb strings.Builder
	sb.Grow(len(sc.Method) + len(sc.Timestamp) + len(sc.URI) + len(sc.Body) + 3)
	sb.WriteString(sc.Method)
	sb.WriteByte('\n')
	sb.WriteString(sc.Timestamp)
	sb.WriteByte('\n')
	sb.WriteString(sc.URI)
	sb.WriteByte('\n')
	sb.WriteString(sc.Body)
	return sb.String()
}

// LogLine формирует отладочное описание запроса из тех же полей, что и подпись.
// Вместо тела печатается его MD5, подпись обрезается.
func (sc SigningContext) LogLine(signature string) string {
	sum := md5.Sum([]byte(sc.Body))
	return fmt.Sprintf("validating request: method=%s uri=%s timestamp=%q body_md5=%s body_bytes=%d signature=%s",
		sc.Method, sc.URI, sc.Timestamp, hex.EncodeToString(sum[:]), len(sc.Body), truncateSignature(signature))
}

// truncateSignature оставляет только начало подписи
func truncateSignature(sig string) string {
	const keep = 8
	if len(sig) <= keep {
		return sig
	}
	return sig[:keep] + "..."
}
