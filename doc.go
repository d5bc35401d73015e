// chatstream - Streaming Chat Transcript Reconciliation for RAG Clients
//
// chatstream is the client-side engine behind a retrieval-augmented-generation
// chat product. A chat session is a WebSocket delivering an unbounded sequence
// of incremental fragments (start, message, thinking, tool_call_result, sql,
// references, stop, error); the engine assembles them into coherent, ordered,
// partially mutable transcripts while the UI renders live.
//
// # Packages
//
//   - wire: the fragment wire format as a tagged union, plus references and
//     feedback payloads
//   - transcript: the pure reducer that routes fragments into logical
//     messages, the assembler with the streaming-lifecycle flag, and feedback
//     application
//   - conn: the WebSocket connection manager with bounded reconnect and the
//     cancel-by-reconnect primitive
//   - api: the REST collaborators (history seeding, chat lifecycle, feedback
//     persistence)
//   - session: the explicit session object and the chat orchestrator running
//     the single-goroutine reconciliation loop
//   - view: projection of per-message pending/streaming flags, and HTML and
//     terminal renderers
//   - store: transcript persistence with in-memory, Redis, SQLite and
//     Postgres backends
//
// # Quick Start
//
//	sess := session.Session{UserID: "u-1", Token: token, BotID: "bot-1"}
//
//	client, _ := api.NewClient("https://rag.example.com", sess.Token)
//	wsURL, _ := conn.URL("https://rag.example.com", sess.BotID, chatID)
//	mgr := conn.NewManager(conn.Options{URL: wsURL})
//
//	chat := session.NewChat(sess, chatID, client, mgr, session.Options{
//		OnSnapshot: func(snap session.Snapshot) {
//			fmt.Print(view.RenderTerminal(snap.Transcript, snap.Loading))
//		},
//	})
//	if err := chat.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer chat.Close()
//
//	chat.Send("What does the Q3 report say about churn?")
//
// Runnable demos live under examples/.
package chatstream
