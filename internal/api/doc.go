// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go     — Handler с DI (сервис jobs, logger)
//   - routes.go      — регистрация маршрутов
//   - middleware.go  — middleware (logging, recovery)
//   - response.go    — унифицированные JSON-ответы и обработка ошибок
//   - dto.go         — Data Transfer Objects (request/response)
//   - job_handler.go — обработчики для /jobs и /stats
//
// API предоставляет REST endpoints для постановки отложенных jobs
// и просмотра их статуса.
package api
