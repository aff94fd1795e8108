// Package cli реализует инструмент командной строки futurejob.
//
// CLI работает через HTTP API и не импортирует внутренние пакеты сервера.
//
// Компоненты:
//   - Client — HTTP-клиент (DataResponse, ListResponse, ErrorResponse)
//   - Output — таблицы (text/tabwriter) по умолчанию, JSON с флагом --json
//   - команды cobra: job (schedule, list, show), stats
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr,
// поэтому работает pipe: futurejob job list --json | jq .
//
// Каждая группа команд создаётся фабрикой (NewJobCmd, NewStatsCmd),
// принимающей clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
