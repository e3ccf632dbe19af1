package expire

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/expire-adapter/expire-go/pkg/duration"
	"github.com/expire-adapter/expire-go/pkg/model"
)

// Configuration errors.
var (
	ErrNoConfig            = errors.New("no monitor configuration")
	ErrNotEnabled          = errors.New("monitoring not enabled")
	ErrInvalidExpiredValue = errors.New("invalid expired value")
)

// Settings keys in an object's custom block.
const (
	keyEnabled  = "enabled"
	keyInterval = "interval"
	keyState    = "state"
	keyAck      = "ack"
)

// MonitorConfig is the expiration policy of one watched key.
type MonitorConfig struct {
	// Interval after the last observation before the value is expired.
	Interval time.Duration

	// ExpiredValue is written when the interval elapses.
	ExpiredValue model.Value

	// Ack is the acknowledgement flag of the forced write.
	Ack bool
}

// ValueType returns the type of the expired value.
func (c MonitorConfig) ValueType() model.ValueType {
	return c.ExpiredValue.Type()
}

// ParseMonitorConfig extracts the policy for namespace from obj.
//
// It returns ErrNoConfig if the object has no block for namespace,
// ErrNotEnabled if the block is not enabled, duration.ErrInvalidInterval for
// an unusable interval and model.ErrUnsupportedType for a value type other
// than boolean, number and string.
//
// A missing state setting means false for booleans and is rejected with
// ErrInvalidExpiredValue for the other types, as is a number that is not
// finite.
func ParseMonitorConfig(namespace string, obj *model.Object) (MonitorConfig, error) {
	block := obj.CustomFor(namespace)
	if block == nil {
		return MonitorConfig{}, ErrNoConfig
	}
	if enabled, _ := block[keyEnabled].(bool); !enabled {
		return MonitorConfig{}, ErrNotEnabled
	}

	interval, err := duration.ParseInterval(intervalExpr(block[keyInterval]))
	if err != nil {
		return MonitorConfig{}, err
	}

	typ, err := model.ParseValueType(obj.Common.Type)
	if err != nil {
		return MonitorConfig{}, err
	}
	raw, ok := block[keyState]
	if !ok && typ != model.TypeBoolean {
		return MonitorConfig{}, fmt.Errorf("%w: no %s setting for %s", ErrInvalidExpiredValue, keyState, typ)
	}
	expired, err := model.Coerce(typ, raw)
	if err != nil {
		return MonitorConfig{}, err
	}
	if n := expired.Number(); typ == model.TypeNumber && (math.IsNaN(n) || math.IsInf(n, 0)) {
		return MonitorConfig{}, fmt.Errorf("%w: %v is not a finite number", ErrInvalidExpiredValue, raw)
	}

	ack, _ := block[keyAck].(bool)

	return MonitorConfig{
		Interval:     interval,
		ExpiredValue: expired,
		Ack:          ack,
	}, nil
}

// intervalExpr returns the interval setting as an expression. Bare numbers
// are accepted and read as seconds.
func intervalExpr(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
