// Package board crawls imageboard boards on a schedule.
//
// A Board walks every index page of one board, drops threads the filter
// has denied or suspended, checks each remaining thread against the block
// lists and either suspends it for review or queues its new images for
// download. Crawls repeat every hour after an initial delay and can be
// stopped between pages and between threads.
package board
