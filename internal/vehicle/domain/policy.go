package domain

import "time"

// AdmissionPolicy — лимиты записи на тест-драйв
type AdmissionPolicy struct {
	DailyCapacity int           // активных записей на автомобиль в день
	Quota         int           // активных записей пользователя за окно
	QuotaWindow   time.Duration // скользящее окно квоты
}

// DefaultAdmissionPolicy: 5 в день на автомобиль, 3 за 30 дней на пользователя
func DefaultAdmissionPolicy() AdmissionPolicy {
	return AdmissionPolicy{
		DailyCapacity: 5,
		Quota:         3,
		QuotaWindow:   30 * 24 * time.Hour,
	}
}

// AdmissionCounts — снимок занятости, собранный под блокировкой
type AdmissionCounts struct {
	SlotTaken        bool
	ActiveOnDay      int
	UserActiveRecent int
}

// Admit проверяет лимиты в фиксированном порядке: слот, день, квота
func (p AdmissionPolicy) Admit(c AdmissionCounts) error {
	if c.SlotTaken {
		return ErrSlotTaken
	}
	if c.ActiveOnDay >= p.DailyCapacity {
		return ErrDailyCapacity
	}
	if c.UserActiveRecent >= p.Quota {
		return ErrBookingQuota
	}
	return nil
}

// QuotaSince — начало окна квоты
func (p AdmissionPolicy) QuotaSince(now time.Time) time.Time {
	return now.Add(-p.QuotaWindow)
}

// AdmitMove проверяет перенос: слот и дневной лимит, квота не пересчитывается.
// Счетчики собираются без учета самой переносимой записи.
func (p AdmissionPolicy) AdmitMove(c AdmissionCounts) error {
	if c.SlotTaken {
		return ErrSlotTaken
	}
	if c.ActiveOnDay >= p.DailyCapacity {
		return ErrDailyCapacity
	}
	return nil
}
