package feed

import (
	"fmt"

	"github.com/golang/glog"
)


// Logging convention in the `feed` package:
// Info:
//     essential events for abnormal behavior. This level should be silent on normal operation,
//     with the exception of one time (infrequent) initialization data that is useful for monitoring
//     this includes:
//     - failed remote mutations and the rollback that followed
//     - identity resolution failures
// Error:
//     unexpected panics even if handled and suppressed for partial operation
// Debug:
//     key events for trace debugging
//     this includes:
//     - mutations issued and settled, keyed by status id
//     - identity upgrades and the re-derivation pass that follows


const LogLevelUrgent = 0
const LogLevelInfo = 50
const LogLevelDebug = 100


type LogFunction func(string, ...any)

func LogFn(level int, tag string) LogFunction {
	return func(format string, a ...any) {
		m := fmt.Sprintf(format, a...)
		switch {
		case level <= LogLevelUrgent:
			glog.Errorf("[%s]%s", tag, m)
		case level <= LogLevelInfo:
			glog.Infof("[%s]%s", tag, m)
		default:
			if glog.V(2) {
				glog.Infof("[%s]%s", tag, m)
			}
		}
	}
}
