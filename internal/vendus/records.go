package vendus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iurnickita/vendussync/internal/model"
)

var ErrInvalidRecord = errors.New("invalid vendus record")

// RecordError - запись Vendus не прошла проверку
type RecordError struct {
	Entity string
	Field  string
	Reason string
	Err    error
}

func (e *RecordError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("vendus %s: field %q: %s", e.Entity, e.Field, e.Reason)
	}
	return fmt.Sprintf("vendus %s: %s", e.Entity, e.Reason)
}

func (e *RecordError) Is(target error) bool {
	return target == ErrInvalidRecord
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// FlexString принимает строку, число или bool из JSON
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	*s = FlexString(b)
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

func (s FlexString) Int64() (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(string(s)), 10, 64)
}

// Bool - перекодировка булевых строк Vendus: "1" - истина, все остальное - ложь
func (s FlexString) Bool() bool {
	return RecodeBool(string(s))
}

func RecodeProductType(v string) string {
	if v == "P" {
		return model.ProductTypeProduct
	}
	return model.ProductTypeService
}

func RecodeDocumentStatus(v string) string {
	if v == "F" {
		return model.DocumentStateFinal
	}
	return model.DocumentStateDraft
}

// RecodeInvoiceStatus - статус документа FT как состояние счета
func RecodeInvoiceStatus(v string) string {
	if v == "F" {
		return model.InvoiceStatePosted
	}
	return model.InvoiceStateDraft
}

func RecodeBool(v string) bool {
	return v == "1"
}

// IsEmpty - пустая запись (null, {}, пустое тело)
func IsEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &m); err == nil {
		return len(m) == 0
	}
	return false
}

// Decode разбирает и проверяет одну запись
func Decode(entity string, raw json.RawMessage, dst any) error {
	if IsEmpty(raw) {
		return &RecordError{Entity: entity, Reason: "empty record"}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &RecordError{Entity: entity, Reason: err.Error(), Err: err}
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &RecordError{
				Entity: entity,
				Field:  verrs[0].Field(),
				Reason: "failed on " + verrs[0].Tag(),
				Err:    err,
			}
		}
		return &RecordError{Entity: entity, Reason: err.Error(), Err: err}
	}
	return nil
}

func init() {
	// в ошибках валидации - имена полей JSON
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

func parseDecimal(entity, field string, n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, &RecordError{Entity: entity, Field: field, Reason: "not a number", Err: err}
	}
	return d, nil
}

func parseDate(entity, field, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	layouts := []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &RecordError{Entity: entity, Field: field, Reason: "not a date"}
}

func parseID(entity, field string, v FlexString) (int64, error) {
	id, err := v.Int64()
	if err != nil {
		return 0, &RecordError{Entity: entity, Field: field, Reason: "not an integer id", Err: err}
	}
	return id, nil
}

func optionalID(entity, field string, v *FlexString) (*int64, error) {
	if v == nil || strings.TrimSpace(v.String()) == "" {
		return nil, nil
	}
	id, err := parseID(entity, field, *v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
