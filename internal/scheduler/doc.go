// Package scheduler реализует планировщик отложенной работы.
//
// Scheduler принимает payload с временем выполнения и выполняет его
// не раньше этого времени. Порядок выполнения — по (due_at, seq).
//
// Структура:
//   - scheduler.go  — фасад: New, Schedule, Shutdown, Stats
//   - dispatcher.go — цикл dispatcher'а (state machine)
//   - state.go      — состояния dispatcher'а
//   - cron.go       — cron-выражения и интервалы (Recurrence, NextOccurrence)
//   - recurring.go  — повторяющиеся submission'ы (ScheduleRecurring)
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Logger:  logger,
//	    Metrics: metrics, // опционально
//	})
//	defer sched.Shutdown()
//
//	seq, err := sched.Schedule(time.Now().Add(time.Minute), func() error {
//	    return sendReminder(ctx, userID)
//	})
//
// Потоки выполнения:
//
// New запускает две горутины: dispatcher (забирает минимальную entry из
// очереди, отдаёт due entries в sink или спит до ближайшего due_at) и
// sink (выполняет payload'ы строго по одному). Schedule можно вызывать
// из любого количества горутин.
//
// Pending entries не переживают Shutdown: они отбрасываются,
// Shutdown возвращает их количество.
package scheduler
