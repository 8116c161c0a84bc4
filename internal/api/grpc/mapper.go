package grpc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"rental-escrow-backend/internal/domain"
	"rental-escrow-backend/internal/service"
)

// args reads typed fields out of a request struct and collects every
// problem into one ValidationError.
type args struct {
	fields map[string]*structpb.Value
	errs   *domain.ValidationError
}

func newArgs(req *structpb.Struct) *args {
	a := &args{errs: &domain.ValidationError{}}
	if req != nil {
		a.fields = req.GetFields()
	}
	return a
}

func (a *args) err() error {
	return a.errs.OrNil()
}

func (a *args) number(name string) (float64, bool) {
	v, ok := a.fields[name]
	if !ok {
		return 0, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return 0, false
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum {
		a.errs.Add(name, "must be a number")
		return 0, false
	}
	if n.NumberValue != math.Trunc(n.NumberValue) {
		a.errs.Add(name, "must be a whole number")
		return 0, false
	}
	return n.NumberValue, true
}

// id reads a required positive identifier.
func (a *args) id(name string) int32 {
	n, ok := a.number(name)
	if !ok {
		if _, exists := a.errs.Fields[name]; !exists {
			a.errs.Add(name, "is required")
		}
		return 0
	}
	if n <= 0 || n > math.MaxInt32 {
		a.errs.Add(name, "must be a positive id")
		return 0
	}
	return int32(n)
}

// maxExactInteger is the largest magnitude a JSON number carries without
// losing integer precision.
const maxExactInteger = 1 << 53

func (a *args) int32(name string) int32 {
	v := a.optionalInt32(name)
	if v == nil {
		return 0
	}
	return *v
}

func (a *args) optionalInt32(name string) *int32 {
	n, ok := a.number(name)
	if !ok {
		return nil
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		a.errs.Add(name, "is out of range")
		return nil
	}
	v := int32(n)
	return &v
}

func (a *args) int64(name string) int64 {
	n, ok := a.number(name)
	if !ok {
		return 0
	}
	if n < -maxExactInteger || n > maxExactInteger {
		a.errs.Add(name, "is out of range")
		return 0
	}
	return int64(n)
}

func (a *args) str(name string) string {
	v, ok := a.fields[name]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NullValue:
		return ""
	}
	a.errs.Add(name, "must be a string")
	return ""
}

func (a *args) optionalTime(name string) *time.Time {
	s := a.str(name)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		a.errs.Add(name, "must be an RFC 3339 timestamp")
		return nil
	}
	return &t
}

// upload reads an optional image given as {"filename": ..., "content": base64}.
func (a *args) upload(name string) *service.Upload {
	v, ok := a.fields[name]
	if !ok {
		return nil
	}
	obj := v.GetStructValue()
	if obj == nil {
		if _, isNull := v.GetKind().(*structpb.Value_NullValue); !isNull {
			a.errs.Add(name, "must be an object with filename and content")
		}
		return nil
	}
	inner := newArgs(obj)
	filename := inner.str("filename")
	encoded := inner.str("content")
	if inner.err() != nil {
		a.errs.Add(name, "must be an object with filename and content")
		return nil
	}
	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		a.errs.Add(name+".content", "must be base64 encoded")
		return nil
	}
	return &service.Upload{Filename: filename, Content: content}
}

// toStruct converts a domain value to a response struct using its json tags.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to build response: %w", err)
	}
	return out, nil
}

func MapRentalToStruct(r *domain.Rental) (*structpb.Struct, error) {
	return toStruct(map[string]any{"rental": r})
}

func MapRentalViewToStruct(v *domain.RentalView) (*structpb.Struct, error) {
	return toStruct(v)
}

func MapRentalListToStruct(rentals []domain.Rental, total int32) (*structpb.Struct, error) {
	if rentals == nil {
		rentals = []domain.Rental{}
	}
	return toStruct(map[string]any{"rentals": rentals, "total": total})
}

func MapTimelineToStruct(events []domain.TimelineEvent) (*structpb.Struct, error) {
	if events == nil {
		events = []domain.TimelineEvent{}
	}
	return toStruct(map[string]any{"events": events})
}

func MapNotificationsToStruct(notes []domain.Notification, total int32) (*structpb.Struct, error) {
	if notes == nil {
		notes = []domain.Notification{}
	}
	return toStruct(map[string]any{"notifications": notes, "total": total})
}
