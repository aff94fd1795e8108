// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - job.submit     — запрос на постановку job (альтернатива HTTP API)
//   - job.completed  — job выполнена (успешно или с ошибкой)
//   - job.fired      — сообщение, опубликованное job типа "publish"
//
// Exchanges:
//   - futurejob.jobs   — входящие запросы
//   - futurejob.events — события и сообщения, публикуемые в назначенное время
//   - futurejob.dlq    — dead letter queue
package mq
