package bargein

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-duplex/core/bargein"

var logger = otelslog.NewLogger(scopeName)
