package auth

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"
)

// DefaultMaxBodyBytes - лимит буферизации тела по умолчанию (1 MiB).
// Тело целиком держится в памяти, поэтому лимит обязателен.
const DefaultMaxBodyBytes int64 = 1 << 20

// BufferedRequest оборачивает входящий запрос так, чтобы тело можно было
// прочитать несколько раз: один раз для проверки подписи и снова в обработчиках.
type BufferedRequest struct {
	req  *http.Request
	body []byte
	text string
}

// Wrap один раз вычитывает тело запроса из транспорта (не более maxBody байт).
// maxBody <= 0 означает DefaultMaxBodyBytes.
func Wrap(r *http.Request, maxBody int64) (*BufferedRequest, error) {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		if r.ContentLength > maxBody {
			return nil, fmt.Errorf("%w: content length %d exceeds %d bytes", ErrBodyTooLarge, r.ContentLength, maxBody)
		}

		// Читаем на байт больше лимита, чтобы отличить "ровно лимит" от "больше лимита"
		data, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
		_ = r.Body.Close()
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, fmt.Errorf("%w: %v", ErrBodyTooLarge, err)
			}
			return nil, fmt.Errorf("%w: %v", ErrBodyRead, err)
		}
		if int64(len(data)) > maxBody {
			return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrBodyTooLarge, maxBody)
		}
		body = data
	}

	b := &BufferedRequest{
		req:  r,
		body: body,
		text: string(body),
	}
	b.rewind()

	return b, nil
}

// rewind подставляет в исходный запрос свежий reader поверх буфера
func (b *BufferedRequest) rewind() {
	if b.body == nil {
		b.req.Body = http.NoBody
		b.req.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		return
	}
	b.req.Body = io.NopCloser(bytes.NewReader(b.body))
	b.req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b.body)), nil
	}
	b.req.ContentLength = int64(len(b.body))
}

// Method возвращает HTTP метод
func (b *BufferedRequest) Method() string { return b.req.Method }

// URI возвращает путь вместе со строкой запроса, как он пришел по сети
func (b *BufferedRequest) URI() string { return b.req.URL.RequestURI() }

// Header возвращает заголовки исходного запроса
func (b *BufferedRequest) Header() http.Header { return b.req.Header }

// Body возвращает копию буферизованного тела
func (b *BufferedRequest) Body() []byte {
	if b.body == nil {
		return nil
	}
	out := make([]byte, len(b.body))
	copy(out, b.body)
	return out
}

// BodyText возвращает тело как текст в UTF-8. Любая другая кодировка отклоняется.
func (b *BufferedRequest) BodyText() (string, error) {
	if !utf8.Valid(b.body) {
		return "", ErrBodyNotUTF8
	}
	return b.text, nil
}

// Request возвращает исходный запрос с телом, перемотанным на начало.
// Каждый вызов дает новый reader, поэтому тело можно читать повторно.
func (b *BufferedRequest) Request() *http.Request {
	b.rewind()
	return b.req
}

// WithRequest заменяет запрос (например, после r.WithContext), сохраняя буфер
func (b *BufferedRequest) WithRequest(r *http.Request) *BufferedRequest {
	nb := &BufferedRequest{req: r, body: b.body, text: b.text}
	nb.rewind()
	return nb
}
