package server

import (
	"context"
	"fmt"
	"log"
	"loom/builtins"
	"loom/store"
	"loom/taskengine"
	"loom/trace"
	"loom/types"
	"net"
	"strings"
	"sync"
	"time"
)

// outputQueueCap is the bounded capacity of a connection's pending-output
// queue (spec: 512). Once full, the oldest buffered line is dropped to make
// room for the newest, rather than blocking the task that produced it.
const outputQueueCap = 512

// loginTimeout bounds how long an unauthenticated connection may sit idle
// before do_login_command() has produced a valid player.
const loginTimeout = 5 * time.Minute

// connOptions holds the per-connection settings exposed through
// set_connection_option()/connection_option().
type connOptions struct {
	holdInput         bool
	clientEcho        bool
	disableOOB        bool
	binary            bool
	flushCommand      string
	intrinsicCommands bool
}

func defaultConnOptions() connOptions {
	return connOptions{
		clientEcho:        true,
		flushCommand:      ".flush",
		intrinsicCommands: true,
	}
}

// pendingRead is a parked read() call waiting for the next in-band input
// line on this connection: a reader suspend path where the next line wakes
// the call instead of being parsed as a command.
type pendingRead struct {
	ch chan string
}

// Connection represents a player connection
type Connection struct {
	ID           int64
	transport    Transport
	player       types.ObjID
	loggedIn     bool
	outputQueue  []string
	outputPrefix string // PREFIX/OUTPUTPREFIX command sets this
	outputSuffix string // SUFFIX/OUTPUTSUFFIX command sets this
	connectedAt  time.Time
	lastInput    time.Time
	opts         connOptions
	heldInput    []string // input parked while hold-input is set
	reader       *pendingRead
	mu           sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewConnection creates a new connection with a transport
func NewConnection(id int64, transport Transport) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		ID:          id,
		transport:   transport,
		player:      types.ObjID(-1), // Not logged in yet
		loggedIn:    false,
		outputQueue: make([]string, 0),
		connectedAt: time.Now(),
		lastInput:   time.Now(),
		opts:        defaultConnOptions(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Send sends a message to the connection immediately
func (c *Connection) Send(message string) error {
	return c.transport.WriteLine(message)
}

// Buffer adds a message to the output queue (flushed later). The queue is
// bounded; once full, the oldest entry is dropped to admit the new one
// rather than applying backpressure to the task that called notify().
func (c *Connection) Buffer(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.outputQueue) >= outputQueueCap {
		c.outputQueue = c.outputQueue[1:]
	}
	c.outputQueue = append(c.outputQueue, message)
}

// Flush flushes the output queue
func (c *Connection) Flush() error {
	c.mu.Lock()
	pending := c.outputQueue
	c.outputQueue = nil
	c.mu.Unlock()

	for _, msg := range pending {
		if err := c.transport.WriteLine(msg); err != nil {
			return err
		}
	}
	return nil
}

// BufferedOutputLength implements builtins.Connection.
func (c *Connection) BufferedOutputLength() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outputQueue)
}

// ConnectedSeconds implements builtins.Connection.
func (c *Connection) ConnectedSeconds() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(time.Since(c.connectedAt).Seconds())
}

// IdleSeconds implements builtins.Connection.
func (c *Connection) IdleSeconds() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(time.Since(c.lastInput).Seconds())
}

// setClientEcho toggles telnet IAC WILL/WON'T ECHO so the remote terminal
// stops/resumes echoing the player's own keystrokes (e.g. during password
// entry).
func (c *Connection) setClientEcho(on bool) {
	const iac, will, wont, echoOpt = 255, 251, 252, 1
	var seq []byte
	if on {
		seq = []byte{iac, wont, echoOpt}
	} else {
		seq = []byte{iac, will, echoOpt}
	}
	c.transport.WriteRaw(seq)
}

// setOption updates a connection option by name, applying any side effect
// the option requires (client-echo toggles telnet bytes immediately).
func (c *Connection) SetOption(name string, value types.Value) {
	c.mu.Lock()
	switch name {
	case "hold-input":
		c.opts.holdInput = value.Truthy()
	case "client-echo":
		c.opts.clientEcho = value.Truthy()
	case "disable-oob":
		c.opts.disableOOB = value.Truthy()
	case "binary":
		c.opts.binary = value.Truthy()
	case "intrinsic-commands":
		c.opts.intrinsicCommands = value.Truthy()
	case "flush-command":
		if s, ok := value.(types.StrValue); ok {
			c.opts.flushCommand = s.Value()
		}
	}
	echo := c.opts.clientEcho
	c.mu.Unlock()
	if name == "client-echo" {
		c.setClientEcho(echo)
	}
}

// holdingInput reports whether hold-input currently suppresses dispatch.
func (c *Connection) holdingInput() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.holdInput
}

// parkReader registers a waiting read() call and returns the channel it
// will receive the next in-band line on.
func (c *Connection) parkReader() chan string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan string, 1)
	c.reader = &pendingRead{ch: ch}
	return ch
}

// deliverLine routes one line of in-band input: to a parked read() if one
// is waiting, to the hold-input backlog if holding, or back to the caller
// for normal command dispatch.
func (c *Connection) deliverLine(line string) (dispatch bool) {
	c.mu.Lock()
	if c.reader != nil {
		r := c.reader
		c.reader = nil
		c.mu.Unlock()
		r.ch <- line
		return false
	}
	if c.opts.holdInput {
		c.heldInput = append(c.heldInput, line)
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()
	return true
}

// ReadLine reads a line of input
func (c *Connection) ReadLine() (string, error) {
	line, err := c.transport.ReadLine()
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.lastInput = time.Now()
	c.mu.Unlock()

	return line, nil
}

// Close closes the connection
func (c *Connection) Close() error {
	c.cancel()
	return c.transport.Close()
}

// RemoteAddr returns the remote address of the connection
func (c *Connection) RemoteAddr() string {
	return c.transport.RemoteAddr()
}

// GetPlayer returns the player ObjID
func (c *Connection) GetPlayer() types.ObjID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player
}

// SetPlayer sets the player ObjID and marks as logged in
func (c *Connection) SetPlayer(player types.ObjID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.player = player
	c.loggedIn = true
}

// IsLoggedIn returns whether the connection is logged in
func (c *Connection) IsLoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

// GetOutputPrefix returns the connection's output prefix
func (c *Connection) GetOutputPrefix() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outputPrefix
}

// GetOutputSuffix returns the connection's output suffix
func (c *Connection) GetOutputSuffix() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outputSuffix
}

// ConnectionManager manages all active connections
type ConnectionManager struct {
	connections    map[int64]*Connection
	playerConns    map[types.ObjID]*Connection // Map player to connection
	nextConnID     int64
	mu             sync.Mutex
	server         *Server
	listeners      []net.Listener
	listenPort     int
	connectTimeout time.Duration
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(server *Server, port int) *ConnectionManager {
	return &ConnectionManager{
		connections:    make(map[int64]*Connection),
		playerConns:    make(map[types.ObjID]*Connection),
		nextConnID:     2, // Start at 2 so first connection is -2 (not -1 which is NOTHING)
		server:         server,
		listenPort:     port,
		connectTimeout: loginTimeout,
	}
}

// GetListenPort implements builtins.ConnectionManager.
func (cm *ConnectionManager) GetListenPort() int {
	return cm.listenPort
}

// Listen starts listening for connections
func (cm *ConnectionManager) Listen() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cm.listenPort))
	if err != nil {
		return fmt.Errorf("listen failed: %w", err)
	}

	cm.listeners = append(cm.listeners, listener)
	log.Printf("Listening on port %d", cm.listenPort)

	go cm.acceptConnections(listener)
	return nil
}

// acceptConnections accepts incoming connections
func (cm *ConnectionManager) acceptConnections(listener net.Listener) {
	for {
		socket, err := listener.Accept()
		if err != nil {
			log.Printf("Accept error: %v", err)
			continue
		}

		cm.handleNewConnection(socket)
	}
}

// handleNewConnection handles a new TCP connection
func (cm *ConnectionManager) handleNewConnection(socket net.Conn) {
	transport := NewTCPTransport(socket)
	conn := cm.NewConnectionFromTransport(transport)

	log.Printf("New connection from %s (ID: %d)", conn.RemoteAddr(), conn.ID)

	// Handle connection in goroutine
	go cm.HandleConnection(conn)
}

// NewConnectionFromTransport creates a connection from any transport (for testing)
func (cm *ConnectionManager) NewConnectionFromTransport(transport Transport) *Connection {
	cm.mu.Lock()
	connID := cm.nextConnID
	cm.nextConnID++
	conn := NewConnection(connID, transport)
	cm.connections[connID] = conn
	// Register with negative ID during unlogged phase (like toaststunt)
	// This allows notify() to reach pre-login connections
	cm.playerConns[types.ObjID(-connID)] = conn
	cm.mu.Unlock()

	return conn
}

// isOOBLine reports whether a raw input line is the MOO out-of-band
// marker ("#$#") or the matching escape prefix ("#$\"") that forces the
// line to be treated as in-band despite starting with the marker.
func isOOBLine(line string) (oob bool, payload string) {
	const marker = "#$#"
	const escape = "#$\""
	if strings.HasPrefix(line, escape) {
		return false, strings.TrimPrefix(line, escape)
	}
	if strings.HasPrefix(line, marker) {
		return true, strings.TrimPrefix(line, marker)
	}
	return false, line
}

// HandleConnection processes a connection (exported for testing)
func (cm *ConnectionManager) HandleConnection(conn *Connection) {
	// Trace new connection
	trace.Connection("NEW", conn.ID, types.ObjID(-conn.ID), conn.RemoteAddr())

	defer func() {
		cm.removeConnection(conn)
		conn.Close()
	}()

	// Set up timeout for unlogged connections
	timeoutCtx, cancel := context.WithTimeout(conn.ctx, cm.connectTimeout)
	defer cancel()
	// Close a still-unlogged connection when the timeout expires, even while
	// ReadLine is blocked waiting for input.
	go func() {
		<-timeoutCtx.Done()
		if timeoutCtx.Err() == context.DeadlineExceeded && !conn.IsLoggedIn() {
			conn.Send("Connection timeout")
			conn.Close()
		}
	}()

	// Send initial welcome banner by calling do_login_command with empty string
	// This matches ToastStunt behavior: new_input_task(h->tasks, "", 0, 0)
	_, _ = cm.callDoLoginCommand(conn, "")

	// Unlogged phase
	for !conn.IsLoggedIn() {
		select {
		case <-timeoutCtx.Done():
			conn.Send("Connection timeout")
			return
		default:
		}

		line, err := conn.ReadLine()
		if err != nil {
			log.Printf("Connection %d read error: %v", conn.ID, err)
			return
		}

		if oob, _ := isOOBLine(line); oob && !conn.opts.disableOOB {
			// OOB commands are meaningless before login; drop silently.
			continue
		}

		// Call #0:do_login_command(connection, line)
		player, err := cm.callDoLoginCommand(conn, line)
		if err != nil {
			log.Printf("Login command failed: %v", err)
			continue
		}

		if player > 0 {
			// Login successful
			cm.loginPlayer(conn, player)
			break
		}
	}

	// Command loop
	for {
		select {
		case <-conn.ctx.Done():
			return
		default:
		}

		line, err := conn.ReadLine()
		if err != nil {
			log.Printf("Connection %d read error: %v", conn.ID, err)
			return
		}

		oob, payload := isOOBLine(line)
		if oob && !conn.opts.disableOOB {
			cm.dispatchOOB(conn, payload)
			continue
		}

		if !conn.deliverLine(payload) {
			// Consumed by a parked read() or parked by hold-input.
			continue
		}

		// Dispatch command
		if err := cm.dispatchCommand(conn, payload); err != nil {
			log.Printf("Command dispatch error: %v", err)
		}
	}
}

// dispatchOOB calls #0:do_out_of_band_command(words...) with the parsed
// words of an out-of-band command line.
func (cm *ConnectionManager) dispatchOOB(conn *Connection, payload string) {
	player := conn.GetPlayer()
	if !conn.IsLoggedIn() {
		player = types.ObjID(-conn.ID)
	}

	words := strings.Fields(payload)
	args := make([]types.Value, len(words))
	for i, w := range words {
		args[i] = types.NewStr(w)
	}

	systemObj := cm.server.store.Get(0)
	if systemObj == nil || systemObj.Verbs["do_out_of_band_command"] == nil {
		return
	}
	cm.server.scheduler.CallVerb(0, "do_out_of_band_command", args, player)
}

// ReadForPlayer parks a read() call for player and blocks until the next
// in-band line arrives on their connection, or the connection closes.
func (cm *ConnectionManager) ReadForPlayer(player types.ObjID) (string, bool) {
	conn := cm.GetConnectionRaw(player)
	if conn == nil {
		return "", false
	}
	ch := conn.parkReader()
	select {
	case line := <-ch:
		return line, true
	case <-conn.ctx.Done():
		return "", false
	}
}

// GetConnectionRaw returns the concrete *Connection for player, or nil.
func (cm *ConnectionManager) GetConnectionRaw(player types.ObjID) *Connection {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if conn, ok := cm.playerConns[player]; ok {
		return conn
	}
	if player < 0 {
		if conn, ok := cm.connections[int64(-player)]; ok {
			return conn
		}
	}
	return nil
}

// callDoLoginCommand calls #0:do_login_command(connection, line)
func (cm *ConnectionManager) callDoLoginCommand(conn *Connection, line string) (types.ObjID, error) {
	systemObj := cm.server.store.Get(0)
	if systemObj == nil {
		return types.ObjID(-1), fmt.Errorf("system object not found")
	}

	verb := systemObj.Verbs["do_login_command"]
	if verb == nil {
		// Default login: accept any input and return player #2
		conn.Send("Welcome! (No login handler defined)")
		return types.ObjID(2), nil
	}

	connID := types.ObjID(-conn.ID) // Negative ID for unlogged connection

	// Parse line into words for args
	// toaststunt passes parsed words as args to do_login_command
	words := strings.Fields(line)
	args := make([]types.Value, len(words))
	for i, word := range words {
		args[i] = types.NewStr(word)
	}

	result := cm.server.scheduler.CallVerb(0, "do_login_command", args, connID)

	if result.Flow == types.FlowException {
		// Extract call stack from result and send traceback to connection
		var stack []taskengine.ActivationFrame
		if result.CallStack != nil {
			if s, ok := result.CallStack.([]taskengine.ActivationFrame); ok {
				stack = s
			}
		}
		// Send traceback to the unlogged connection
		lines := taskengine.FormatTraceback(stack, result.Error, connID)
		for _, line := range lines {
			conn.Send(line)
		}
		return types.ObjID(-1), nil // Login failed, stay unlogged
	}

	// Check if result is a valid player object
	if objVal, ok := result.Val.(types.ObjValue); ok {
		playerID := objVal.ID()
		if playerID > 0 && cm.server.store.Get(playerID) != nil {
			return playerID, nil
		}
	}

	// Check if switch_player was called during the verb execution
	// If so, the connection's player has already been updated
	cm.mu.Lock()
	currentPlayer := conn.GetPlayer()
	cm.mu.Unlock()
	if currentPlayer > 0 {
		return currentPlayer, nil
	}

	return types.ObjID(-1), nil // Login failed, stay unlogged
}

// loginPlayer associates a connection with a player
func (cm *ConnectionManager) loginPlayer(conn *Connection, player types.ObjID) {
	cm.mu.Lock()

	// Remove negative ID mapping (used for pre-login notify())
	delete(cm.playerConns, types.ObjID(-conn.ID))

	// Check if player already connected
	alreadyLoggedIn := false
	reconnection := false
	var existingConn *Connection
	if ec, exists := cm.playerConns[player]; exists {
		if ec == conn {
			// Already logged in via switch_player, just need to call user_connected
			alreadyLoggedIn = true
		} else {
			// Different connection - need to boot: a player owns at most one
			// connection at a time, so the older connection is redirected off.
			existingConn = ec
			reconnection = true
		}
	}

	if !alreadyLoggedIn {
		conn.SetPlayer(player)
		cm.playerConns[player] = conn
	}

	cm.mu.Unlock()

	// Trace login event
	if reconnection {
		trace.Connection("RECONNECT", conn.ID, player, "")
	} else {
		trace.Connection("LOGIN", conn.ID, player, "")
	}

	// Call hooks outside the lock
	if alreadyLoggedIn {
		log.Printf("Connection %d already logged in as player %d via switch_player", conn.ID, player)
		cm.callUserConnected(player)
		return
	}

	if reconnection {
		existingConn.Send("You have been disconnected (reconnected elsewhere)")
		existingConn.Close()
		cm.callUserReconnected(player)
	} else {
		cm.callUserConnected(player)
	}

	log.Printf("Connection %d logged in as player %d", conn.ID, player)
}

// dispatchCommand parses and dispatches a command
func (cm *ConnectionManager) dispatchCommand(conn *Connection, line string) error {
	player := conn.GetPlayer()
	playerObj := cm.server.store.Get(player)
	if playerObj == nil {
		return fmt.Errorf("player object not found")
	}
	location := playerObj.Location

	conn.mu.Lock()
	flushCmd := conn.opts.flushCommand
	intrinsicOn := conn.opts.intrinsicCommands
	conn.mu.Unlock()
	if flushCmd != "" && line == flushCmd {
		conn.mu.Lock()
		conn.outputQueue = nil
		conn.mu.Unlock()
		return nil
	}

	// Parse the command
	cmd := ParseCommand(line)
	if cmd.Verb == "" {
		return nil // Empty command
	}

	// Handle intrinsic commands (PREFIX, SUFFIX, OUTPUTPREFIX, OUTPUTSUFFIX, EVAL)
	// These are server-level commands that set output delimiters or evaluate code
	verbUpper := strings.ToUpper(cmd.Verb)
	if intrinsicOn {
		switch verbUpper {
		case "PREFIX", "OUTPUTPREFIX":
			conn.mu.Lock()
			conn.outputPrefix = cmd.Argstr
			conn.mu.Unlock()
			return nil
		case "SUFFIX", "OUTPUTSUFFIX":
			conn.mu.Lock()
			conn.outputSuffix = cmd.Argstr
			conn.mu.Unlock()
			return nil
		case "EVAL":
			// Evaluate the code directly using eval() builtin
			// The code is in cmd.Argstr (already trimmed of leading whitespace)
			code := strings.TrimSpace(cmd.Argstr)
			if code == "" {
				return nil
			}
			// Queue eval task
			cm.server.scheduler.EvalCommand(player, code, conn)
			return nil
		}
	}

	// Resolve direct object
	if cmd.Dobjstr != "" {
		cmd.Dobj = MatchObject(cm.server.store, player, location, cmd.Dobjstr)
	}

	// Resolve indirect object
	if cmd.Iobjstr != "" {
		cmd.Iobj = MatchObject(cm.server.store, player, location, cmd.Iobjstr)
	}

	// Find the verb
	match := FindVerb(cm.server.store, player, location, cmd)
	if match == nil {
		// Try #0:do_command as fallback
		systemObj := cm.server.store.Get(0)
		if systemObj != nil {
			if verb := systemObj.Verbs["do_command"]; verb != nil {
				if verb.Program == nil && len(verb.Code) > 0 {
					program, errors := store.CompileVerb(verb.Code)
					if len(errors) > 0 {
						conn.Send(fmt.Sprintf("Verb compile error: %s", errors[0]))
						return nil
					}
					verb.Program = program
				}
				if verb.Program != nil && len(verb.Program.Statements) > 0 {
					doCmdMatch := &VerbMatch{Verb: verb, This: 0, VerbLoc: 0}
					cm.server.scheduler.CreateVerbTask(player, doCmdMatch, cmd, conn.GetOutputSuffix())
					return nil
				}
			}
		}
		conn.Send("I don't understand that.")
		return nil
	}

	// Compile verb if needed (lazy compilation)
	if match.Verb.Program == nil && len(match.Verb.Code) > 0 {
		program, errors := store.CompileVerb(match.Verb.Code)
		if len(errors) > 0 {
			conn.Send(fmt.Sprintf("Verb compile error: %s", errors[0]))
			return nil
		}
		match.Verb.Program = program
	}

	// Execute the verb
	if match.Verb.Program == nil || len(match.Verb.Program.Statements) == 0 {
		conn.Send(fmt.Sprintf("[%s has no code]", match.Verb.Name))
		return nil
	}

	// Create task to execute the verb
	cm.server.scheduler.CreateVerbTask(player, match, cmd, conn.GetOutputSuffix())

	return nil
}

// removeConnection removes a connection
func (cm *ConnectionManager) removeConnection(conn *Connection) {
	var player types.ObjID
	wasLoggedIn := false

	cm.mu.Lock()
	delete(cm.connections, conn.ID)
	if conn.IsLoggedIn() {
		player = conn.GetPlayer()
		wasLoggedIn = true
		delete(cm.playerConns, player)
	}
	cm.mu.Unlock()

	// Trace disconnect event
	if wasLoggedIn {
		trace.Connection("DISCONNECT", conn.ID, player, "")
	} else {
		trace.Connection("DISCONNECT", conn.ID, types.ObjID(-conn.ID), "unlogged")
	}

	// Call hook OUTSIDE the lock to prevent deadlock
	if wasLoggedIn {
		cm.callUserDisconnected(player)
	}

	log.Printf("Connection %d closed", conn.ID)
}

// sendTracebackToPlayer sends a formatted traceback to the player's connection
// Used when hook calls fail with uncaught exceptions
func (cm *ConnectionManager) sendTracebackToPlayer(player types.ObjID, err types.ErrorCode, stack []taskengine.ActivationFrame) {
	// Format traceback first (needed for both connection and log fallback)
	lines := taskengine.FormatTraceback(stack, err, player)

	conn := cm.GetConnection(player)
	if conn == nil {
		// Connection not found (player disconnected or not mapped yet)
		// Log to server so the traceback isn't lost
		log.Printf("Traceback for player %s (connection not found):", player)
		for _, line := range lines {
			log.Printf("  %s", line)
		}
		return
	}

	// Send to player connection
	for _, line := range lines {
		conn.Send(line)
	}
}

// callUserConnected calls #0:user_connected(player)
func (cm *ConnectionManager) callUserConnected(player types.ObjID) {
	args := []types.Value{types.NewObj(player)}
	result := cm.server.scheduler.CallVerb(0, "user_connected", args, player)
	if result.Flow == types.FlowException {
		log.Printf("user_connected error: %v", result.Error)
		// Extract call stack from result if available
		var stack []taskengine.ActivationFrame
		if result.CallStack != nil {
			if s, ok := result.CallStack.([]taskengine.ActivationFrame); ok {
				stack = s
			}
		}
		cm.sendTracebackToPlayer(player, result.Error, stack)
	}
}

// callUserReconnected calls #0:user_reconnected(player)
func (cm *ConnectionManager) callUserReconnected(player types.ObjID) {
	args := []types.Value{types.NewObj(player)}
	result := cm.server.scheduler.CallVerb(0, "user_reconnected", args, player)
	if result.Flow == types.FlowException {
		log.Printf("user_reconnected error: %v", result.Error)
		// Extract call stack from result if available
		var stack []taskengine.ActivationFrame
		if result.CallStack != nil {
			if s, ok := result.CallStack.([]taskengine.ActivationFrame); ok {
				stack = s
			}
		}
		cm.sendTracebackToPlayer(player, result.Error, stack)
	}
}

// callUserDisconnected calls #0:user_disconnected(player)
func (cm *ConnectionManager) callUserDisconnected(player types.ObjID) {
	args := []types.Value{types.NewObj(player)}
	result := cm.server.scheduler.CallVerb(0, "user_disconnected", args, player)
	if result.Flow == types.FlowException {
		log.Printf("user_disconnected error: %v", result.Error)
		// Extract call stack from result if available
		var stack []taskengine.ActivationFrame
		if result.CallStack != nil {
			if s, ok := result.CallStack.([]taskengine.ActivationFrame); ok {
				stack = s
			}
		}
		cm.sendTracebackToPlayer(player, result.Error, stack)
	}
}

// GetConnection returns a connection by player ID
// Supports negative IDs for unlogged connections
func (cm *ConnectionManager) GetConnection(player types.ObjID) builtins.Connection {
	conn := cm.GetConnectionRaw(player)
	if conn == nil {
		return nil
	}
	return conn
}

// ConnectedPlayers returns the list of connected player ObjIDs. When
// showAll is false, pre-login (negative-ID) connections are omitted.
func (cm *ConnectionManager) ConnectedPlayers(showAll bool) []types.ObjID {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	players := make([]types.ObjID, 0, len(cm.playerConns))
	for player := range cm.playerConns {
		if !showAll && player < 0 {
			continue
		}
		players = append(players, player)
	}
	return players
}

// BootPlayer disconnects a player
func (cm *ConnectionManager) BootPlayer(player types.ObjID) error {
	cm.mu.Lock()
	conn := cm.playerConns[player]
	cm.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("player not connected")
	}

	conn.Send("You have been disconnected")
	conn.Close()
	return nil
}

// SwitchPlayer switches a connection from one player to another
// This is used during login to switch from negative connection ID to actual player
func (cm *ConnectionManager) SwitchPlayer(oldPlayer, newPlayer types.ObjID) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	// Find connection for old player
	conn := cm.playerConns[oldPlayer]
	if conn == nil {
		// Try looking up by connection ID if oldPlayer is negative
		if oldPlayer < 0 {
			connID := int64(-oldPlayer)
			conn = cm.connections[connID]
		}
	}

	if conn == nil {
		return fmt.Errorf("old player not connected")
	}

	// Remove old player mapping
	delete(cm.playerConns, oldPlayer)

	// Check if new player is already connected (reconnection)
	if existingConn, exists := cm.playerConns[newPlayer]; exists && existingConn != conn {
		// Boot existing connection
		existingConn.Send("You have been disconnected (reconnected elsewhere)")
		existingConn.Close()
	}

	// Set up new player
	conn.SetPlayer(newPlayer)
	cm.playerConns[newPlayer] = conn

	log.Printf("Switched connection %d from player %d to %d", conn.ID, oldPlayer, newPlayer)
	return nil
}
