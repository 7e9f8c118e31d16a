package command

// PlayerAction distinguishes the two lifecycle commands a Command can
// carry for a client.
type PlayerAction uint8

const (
	PlayerAdd PlayerAction = iota
	PlayerRemove
)

// Kind discriminates the Command tagged variant.
type Kind uint8

const (
	KindInput Kind = iota
	KindPlayer
)

// Command is the tagged variant the tick function consumes: either a
// per-tick Input from a known client, or a join/leave lifecycle event.
// Go has no native sum type, so the tag is explicit and every consumer is
// expected to switch exhaustively on Kind.
type Command struct {
	Kind     Kind
	ClientID uint64

	// Valid when Kind == KindInput.
	Clock uint64
	Input Input

	// Valid when Kind == KindPlayer.
	Action PlayerAction
}

// NewInputCommand builds an Input-kind command for clock tagged input.
func NewInputCommand(clientID uint64, clock uint64, in Input) Command {
	return Command{Kind: KindInput, ClientID: clientID, Clock: clock, Input: in}
}

// NewPlayerAddCommand builds a Player(add) command.
func NewPlayerAddCommand(clientID uint64) Command {
	return Command{Kind: KindPlayer, ClientID: clientID, Action: PlayerAdd}
}

// NewPlayerRemoveCommand builds a Player(remove) command.
func NewPlayerRemoveCommand(clientID uint64) Command {
	return Command{Kind: KindPlayer, ClientID: clientID, Action: PlayerRemove}
}
