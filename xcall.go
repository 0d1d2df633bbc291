// Package xcall is the invocation layer of a contract runtime: how a
// contract's entry points are addressed, how calls to other contracts are
// built and fired, and how inbound payloads reach the right handler.
//
// Every constructor and message is addressed by a 4-byte Selector. A payload
// is the selector followed by the ABI encoding of the arguments. The library
// covers both directions:
//   - Outbound: Invoke, Eval and Create build calls step by step and fire them
//     through a Host
//   - Inbound: a Declaration lists constructors, messages and events and builds
//     a Contract that routes payloads to handlers
//
// # Outbound Calls
//
// A builder is unsealed until Seal, after which no argument can be added.
// Errors are sticky and reported when firing:
//
//	counter, err := xcall.Eval[uint32](addr, xcall.ComputeSelector("get()")).
//	    WithGasLimit(50_000).
//	    Fire(env)
//
//	err = xcall.Invoke(addr, xcall.ComputeSelector("increment(uint32)")).
//	    PushArg(uint32(5)).
//	    Seal().
//	    Fire(env)
//
// A failed call is reported as *CallError whatever the callee did: trapping,
// reverting or not existing all look the same to the caller.
//
// Contracts are instantiated from a code hash:
//
//	addr, err := xcall.Create(xcall.ZeroSelector).
//	    UsingCode(codeHash).
//	    PushArg(uint32(7)).
//	    Fire(env)
//
// Firing a create builder without a code hash fails with ErrCodeHashMissing
// and never reaches the host.
//
// # Declaring Contracts
//
//	type Counter struct{ Value uint32 }
//
//	counter := xcall.NewDeclaration[Counter]("Counter").
//	    Constructor("new", []xcall.Param{{Name: "init", Type: "uint32"}},
//	        func(env *xcall.Env, s *Counter, args xcall.Args) error {
//	            s.Value = xcall.Arg[uint32](args, 0)
//	            return nil
//	        }).
//	    Message("get", nil,
//	        func(env *xcall.Env, s Counter, args xcall.Args) (any, error) {
//	            return s.Value, nil
//	        }, xcall.WithReturns("uint32")).
//	    MustBuild()
//
//	code := counter.Call(host, &state)
//
// Build derives both the dispatch tables and the ContractSpec from the same
// declaration and fails on selector collisions. Dispatch never runs a handler
// for input that is too short, addressed to an unknown selector or not a
// canonical encoding of the declared arguments.
//
// # Hosts
//
// Host is the boundary to the execution environment. Package xcalltest
// provides an in-memory implementation for tests and tooling.
package xcall
