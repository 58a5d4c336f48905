package road

import (
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "road")
