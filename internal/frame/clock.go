package frame

import "time"

var processStart = time.Now()
