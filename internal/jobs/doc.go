// Package jobs связывает планировщик с исполнителями и журналом.
//
// Job — описание работы (Kind + Config) и времени (DueAt, cron, интервал).
// Service.Submit ставит job в планировщик; payload entry выполняет
// executor из worker.Registry, пишет результат в журнал и публикует
// job.completed. Повторные попытки и следующие повторения ставятся
// НОВЫМИ entries.
//
// Журнал (Store) хранит историю; очередь после рестарта не восстанавливается,
// Recover помечает оставшиеся от прошлого процесса jobs как DISCARDED.
package jobs
