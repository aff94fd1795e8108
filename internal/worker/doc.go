// Package worker выполняет сработавшие entries и jobs.
//
// # Обзор
//
// Пакет содержит две независимые части:
//
//   - Sink — строго последовательный исполнитель payload'ов, в который
//     dispatcher планировщика передаёт наступившие entries
//   - Executor'ы — реализация конкретного типа job (http, publish, log)
//
// # Ключевые компоненты
//
// ## Sink
//
// Выполняет payload'ы по одному в порядке Submit. Submit не блокируется,
// ожидающие entries копятся в FIFO-backlog. Ошибка или паника payload'а
// логируется и не останавливает Sink.
//
//	sink := worker.NewSink(worker.SinkConfig{Logger: logger})
//	sink.Start(ctx)
//	defer sink.Stop()
//
//	_ = sink.Submit(entry)
//
// Stop ждёт завершения текущего payload'а и отбрасывает backlog.
//
// ## Executor
//
// Интерфейс для выполнения конкретного типа job:
//
//	type Executor interface {
//	    Execute(ctx context.Context, job *domain.Job) (*ExecutionResult, error)
//	}
//
// Реализации:
//   - HTTPExecutor — callback по URL (method, headers, body, timeout_sec)
//   - PublishExecutor — публикация сообщения в RabbitMQ (exchange, routing_key, payload)
//   - LogExecutor — запись в лог (message, level)
//
// ## Registry
//
// Реестр executor'ов по типу job. NewRegistry() регистрирует http и log;
// publish добавляется при наличии соединения с RabbitMQ.
//
// # Ошибки
//
// Пакет различает два уровня ошибок:
//   - Инфраструктурные (error от Execute) — сеть упала, брокер недоступен
//   - Логические (ExecutionResult.Error) — HTTP 500, неверный config
//
// Решение о повторе принимает сервис jobs по RetryPolicy.
package worker
