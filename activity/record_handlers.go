package activity

import (
	"github.com/sirupsen/logrus"
)

/*
return nil if not support
*/
type Handler func(r *Record) *HandleResult

type HandleResult struct {
	Success           bool
	Message           string
	HandlerIdentifier string
}

var Handlers []Handler

var InvokeHandlersFunc = invokeHandlers

func invokeHandlers(record *Record) []HandleResult {
	results := []HandleResult{}
	for _, handler := range Handlers {
		logrus.Debug("pre handle activity ", record.Activity)
		r := handler(record)

		if r == nil {
			continue
		}

		results = append(results, *r)

		if r.Success {
			logrus.Info("post handle activity. ", r)
		} else {
			logrus.Error("post handler error. ", r)
		}
	}
	return results
}
