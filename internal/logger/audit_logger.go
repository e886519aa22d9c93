// Package logger provides audit logging.
package logger

import (
	"github.com/sirupsen/logrus"

	"github.com/yourusername/sharpline/internal/models"
)

// AuditLogger provides a dedicated audit trail for catalog mutations.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogTuningTransition logs a variant status/threshold change applied by the
// performance tuner.
func (al *AuditLogger) LogTuningTransition(t *models.TuningTransition) {
	al.WithFields(logrus.Fields{
		"strategy":          t.StrategyName,
		"variant":           t.VariantName,
		"from_status":       string(t.FromStatus),
		"to_status":         string(t.ToStatus),
		"thresholds_before": t.ThresholdsBefore,
		"thresholds_after":  t.ThresholdsAfter,
		"reason":            t.Reason,
	}).Info("Variant tuning transition recorded")
}
