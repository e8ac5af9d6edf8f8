package cron

import (
	"fmt"
	"log"
	"time"

	"github.com/museume/museume-backend/model"
)

// SendClassReminders emails confirmed members whose real-time class starts
// within the next 24 hours. The reminder_sent flag makes each signup
// eligible exactly once; a failed send stays eligible for the next pass.
func (m *CronManager) SendClassReminders() {
	jobName := "send_class_reminders"

	now := time.Now()
	windowEnd := now.Add(24 * time.Hour)

	var signups []model.MemberClassSignup
	err := m.db.
		Joins("JOIN artist_classes ON artist_classes.id = member_class_signups.artist_class_id").
		Where("member_class_signups.status = ?", model.SignupConfirmed).
		Where("member_class_signups.reminder_sent = ?", false).
		Where("artist_classes.class_type = ?", model.ClassTypeRealTime).
		Where("artist_classes.start_date BETWEEN ? AND ?", now, windowEnd).
		Preload("Member").Preload("Member.Parent").Preload("ArtistClass").
		Find(&signups).Error
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to query signups: %w", err))
		return
	}

	if len(signups) == 0 {
		m.logJobComplete(jobName, "No reminders due")
		return
	}

	sent := 0
	failed := 0

	for _, signup := range signups {
		class := signup.ArtistClass
		startsAt := ""
		if class.StartDate != nil {
			startsAt = class.StartDate.Format("2006-01-02 15:04 MST")
		}

		recipient := signup.Member.NotificationEmail()
		if err := m.mailer.SendClassReminderEmail(recipient, signup.Member.Name, class.Name, class.URL, startsAt); err != nil {
			log.Printf("[CRON] Failed to send reminder for signup %d: %v", signup.ID, err)
			failed++
			continue
		}

		if err := m.db.Model(&model.MemberClassSignup{}).
			Where("id = ?", signup.ID).
			Update("reminder_sent", true).Error; err != nil {
			log.Printf("[CRON] Failed to flag reminder for signup %d: %v", signup.ID, err)
			failed++
			continue
		}
		sent++
	}

	m.logJobComplete(jobName, fmt.Sprintf("Sent %d reminders, %d failed", sent, failed))
}

// ReportStalePayments logs payments that have sat in pending for over a
// week. Payments are never deleted; this is an operator signal only.
func (m *CronManager) ReportStalePayments() {
	jobName := "report_stale_payments"

	cutoff := time.Now().Add(-7 * 24 * time.Hour)

	var count int64
	err := m.db.Model(&model.Payment{}).
		Where("status = ? AND created_at < ?", model.PaymentPending, cutoff).
		Count(&count).Error
	if err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to count stale payments: %w", err))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("%d payments pending for more than 7 days", count))
}
