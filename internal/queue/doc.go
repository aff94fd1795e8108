// Package queue реализует упорядоченную очередь entries для планировщика.
//
// Структура:
//   - heap.go  — min-heap по domain.Compare (DueAt, затем Seq)
//   - queue.go — потокобезопасная очередь: Insert, TakeMin, Requeue, PeekEarliestDueAt
//
// Модель: много производителей (Insert из любых горутин) и один потребитель
// (dispatcher, вызывающий TakeMin). Вызывающим не нужна внешняя синхронизация.
//
// Пробуждение:
//
// Каждый Insert делает неблокирующую отправку в буферизованный канал (ёмкость 1).
// Сигнал, отправленный до того, как dispatcher начал ждать, остаётся в буфере,
// поэтому пробуждение не теряется. Requeue кладёт entry обратно без сигнала:
// dispatcher не должен будить сам себя.
package queue
