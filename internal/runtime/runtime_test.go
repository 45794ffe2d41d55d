package runtime

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"token-escrow/internal/pda"
)

var testProgram = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	pk, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("NewRandomPrivateKey: %v", err)
	}
	return pk.PublicKey()
}

func derivedTarget(t *testing.T, seed string) (solana.PublicKey, [][]byte) {
	t.Helper()
	seeds := [][]byte{[]byte(seed)}
	addr, bump, err := pda.FindProgramAddress(seeds, testProgram)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	return addr, append(seeds, []byte{bump})
}

func systemInfo() *AccountInfo {
	return &AccountInfo{Key: solana.SystemProgramID, Owner: NativeLoaderID, Executable: true}
}

func TestRent_MinimumBalance(t *testing.T) {
	if got := DefaultRent.MinimumBalance(0); got != 890880 {
		t.Errorf("MinimumBalance(0) = %d, want 890880", got)
	}
	if got := DefaultRent.MinimumBalance(35); got != (128+35)*3480*2 {
		t.Errorf("MinimumBalance(35) = %d", got)
	}
}

func TestNew_RegistersBuiltins(t *testing.T) {
	ledger := NewLedger()
	New(ledger)

	for _, id := range []solana.PublicKey{solana.SystemProgramID, solana.TokenProgramID} {
		acct, ok := ledger.Get(id)
		if !ok || !acct.Executable || acct.Owner != NativeLoaderID {
			t.Errorf("builtin %s not registered: %+v", id, acct)
		}
		if !IsBuiltin(id) {
			t.Errorf("IsBuiltin(%s) = false", id)
		}
	}
	if IsBuiltin(testProgram) {
		t.Error("IsBuiltin(program) = true")
	}
	if ledger.Len() != 2 {
		t.Errorf("ledger holds %d accounts, want 2", ledger.Len())
	}
}

func TestCreateAccount(t *testing.T) {
	rt := New(NewLedger())
	target, seeds := derivedTarget(t, "escrow")

	payer := &AccountInfo{Key: newKey(t), Owner: solana.SystemProgramID, Lamports: 10_000_000, IsSigner: true, IsWritable: true}
	dst := &AccountInfo{Key: target, Owner: solana.SystemProgramID, IsWritable: true}

	err := rt.CreateAccount(CreateAccountRequest{
		Owner:         testProgram,
		Target:        dst,
		SystemProgram: systemInfo(),
		Payer:         payer,
		Space:         35,
		SignerSeeds:   seeds,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	want := DefaultRent.MinimumBalance(35)
	if dst.Lamports != want {
		t.Errorf("target lamports = %d, want %d", dst.Lamports, want)
	}
	if payer.Lamports != 10_000_000-want {
		t.Errorf("payer lamports = %d, want %d", payer.Lamports, 10_000_000-want)
	}
	if len(dst.Data) != 35 || dst.Owner != testProgram {
		t.Errorf("target len=%d owner=%s", len(dst.Data), dst.Owner)
	}
}

func TestCreateAccount_PrefundedTarget(t *testing.T) {
	rt := New(NewLedger())
	target, seeds := derivedTarget(t, "prefunded")

	payer := &AccountInfo{Key: newKey(t), Owner: solana.SystemProgramID, Lamports: 10_000_000, IsSigner: true, IsWritable: true}
	dst := &AccountInfo{Key: target, Owner: solana.SystemProgramID, Lamports: 100_000, IsWritable: true}

	err := rt.CreateAccount(CreateAccountRequest{
		Owner: testProgram, Target: dst, SystemProgram: systemInfo(), Payer: payer, Space: 10, SignerSeeds: seeds,
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	want := DefaultRent.MinimumBalance(10)
	if dst.Lamports != want {
		t.Errorf("target lamports = %d, want %d", dst.Lamports, want)
	}
	if payer.Lamports != 10_000_000-(want-100_000) {
		t.Errorf("payer charged %d, want %d", 10_000_000-payer.Lamports, want-100_000)
	}
}

func TestCreateAccount_Failures(t *testing.T) {
	target, seeds := derivedTarget(t, "fail")
	other, _ := derivedTarget(t, "other")

	tests := []struct {
		name    string
		mutate  func(req *CreateAccountRequest)
		wantErr error
	}{
		{
			name:    "wrong system program",
			mutate:  func(req *CreateAccountRequest) { req.SystemProgram = &AccountInfo{Key: testProgram} },
			wantErr: ErrIncorrectProgramID,
		},
		{
			name:    "seeds for another address",
			mutate:  func(req *CreateAccountRequest) { req.Target.Key = other },
			wantErr: ErrInvalidSignerSeeds,
		},
		{
			name:    "payer underfunded",
			mutate:  func(req *CreateAccountRequest) { req.Payer.Lamports = 10 },
			wantErr: ErrInsufficientFunds,
		},
		{
			name:    "payer not signer",
			mutate:  func(req *CreateAccountRequest) { req.Payer.IsSigner = false },
			wantErr: ErrMissingRequiredSignature,
		},
		{
			name: "target already has data",
			mutate: func(req *CreateAccountRequest) {
				req.Target.Data = []byte{1}
			},
			wantErr: ErrAccountAlreadyInUse,
		},
		{
			name: "target owned by program",
			mutate: func(req *CreateAccountRequest) {
				req.Target.Owner = testProgram
				req.Target.Lamports = DefaultRent.MinimumBalance(35)
			},
			wantErr: ErrAccountAlreadyInUse,
		},
		{
			name:    "oversized",
			mutate:  func(req *CreateAccountRequest) { req.Space = MaxPermittedDataLength + 1 },
			wantErr: ErrInvalidAccountDataLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := New(NewLedger())
			payer := &AccountInfo{Key: newKey(t), Owner: solana.SystemProgramID, Lamports: 10_000_000, IsSigner: true, IsWritable: true}
			req := CreateAccountRequest{
				Owner:         testProgram,
				Target:        &AccountInfo{Key: target, Owner: solana.SystemProgramID, IsWritable: true},
				SystemProgram: systemInfo(),
				Payer:         payer,
				Space:         35,
				SignerSeeds:   seeds,
			}
			tt.mutate(&req)

			lamportsBefore := req.Payer.Lamports
			err := rt.CreateAccount(req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if req.Payer.Lamports != lamportsBefore {
				t.Errorf("payer debited on failure: %d -> %d", lamportsBefore, req.Payer.Lamports)
			}
		})
	}
}

func TestExecute_CommitsWritableAccounts(t *testing.T) {
	ledger := NewLedger()
	rt := New(ledger)

	from, to := newKey(t), newKey(t)
	ledger.Put(from, &Account{Owner: solana.SystemProgramID, Lamports: 1000})

	ix := solana.NewInstruction(testProgram, solana.AccountMetaSlice{
		solana.NewAccountMeta(from, true, true),
		solana.NewAccountMeta(to, true, false),
	}, []byte{1})

	transfer := HandlerFunc(func(_ solana.PublicKey, accounts []*AccountInfo, data []byte) error {
		if len(data) != 1 || data[0] != 1 {
			t.Errorf("unexpected data %v", data)
		}
		accounts[0].Lamports -= 400
		accounts[1].Lamports += 400
		return nil
	})

	if err := rt.Execute(ix, []solana.PublicKey{from}, transfer); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got, _ := ledger.Get(from)
	if got.Lamports != 600 {
		t.Errorf("from lamports = %d, want 600", got.Lamports)
	}
	got, ok := ledger.Get(to)
	if !ok || got.Lamports != 400 {
		t.Errorf("to account = %+v, %v", got, ok)
	}
}

func TestExecute_RollsBackOnError(t *testing.T) {
	ledger := NewLedger()
	rt := New(ledger)

	from, to := newKey(t), newKey(t)
	ledger.Put(from, &Account{Owner: solana.SystemProgramID, Lamports: 1000})

	ix := solana.NewInstruction(testProgram, solana.AccountMetaSlice{
		solana.NewAccountMeta(from, true, true),
		solana.NewAccountMeta(to, true, false),
	}, nil)

	boom := errors.New("boom")
	failing := HandlerFunc(func(_ solana.PublicKey, accounts []*AccountInfo, _ []byte) error {
		accounts[0].Lamports -= 400
		accounts[1].Lamports += 400
		return boom
	})

	if err := rt.Execute(ix, []solana.PublicKey{from}, failing); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := ledger.Get(from)
	if got.Lamports != 1000 {
		t.Errorf("from lamports = %d, want 1000", got.Lamports)
	}
	if _, ok := ledger.Get(to); ok {
		t.Error("to account must not exist after rollback")
	}
}

func TestExecute_Violations(t *testing.T) {
	from, to := newKey(t), newKey(t)

	tests := []struct {
		name    string
		metas   solana.AccountMetaSlice
		signers []solana.PublicKey
		handler HandlerFunc
		wantErr error
	}{
		{
			name:    "missing signature",
			metas:   solana.AccountMetaSlice{solana.NewAccountMeta(from, true, true)},
			handler: func(solana.PublicKey, []*AccountInfo, []byte) error { return nil },
			wantErr: ErrMissingRequiredSignature,
		},
		{
			name:    "read-only modified",
			metas:   solana.AccountMetaSlice{solana.NewAccountMeta(from, false, false)},
			handler: func(_ solana.PublicKey, a []*AccountInfo, _ []byte) error { a[0].Data = []byte{1}; return nil },
			wantErr: ErrAccountNotWritable,
		},
		{
			name: "lamports minted",
			metas: solana.AccountMetaSlice{
				solana.NewAccountMeta(from, true, false),
				solana.NewAccountMeta(to, true, false),
			},
			handler: func(_ solana.PublicKey, a []*AccountInfo, _ []byte) error { a[1].Lamports += 5; return nil },
			wantErr: ErrUnbalancedInstruction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := NewLedger()
			ledger.Put(from, &Account{Owner: solana.SystemProgramID, Lamports: 1000})
			rt := New(ledger)

			ix := solana.NewInstruction(testProgram, tt.metas, nil)
			err := rt.Execute(ix, tt.signers, tt.handler)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			got, _ := ledger.Get(from)
			if got.Lamports != 1000 || len(got.Data) != 0 {
				t.Errorf("ledger changed: %+v", got)
			}
		})
	}
}

func TestExecute_DuplicateKeysShareView(t *testing.T) {
	ledger := NewLedger()
	rt := New(ledger)
	key := newKey(t)
	ledger.Put(key, &Account{Owner: solana.SystemProgramID, Lamports: 50})

	ix := solana.NewInstruction(testProgram, solana.AccountMetaSlice{
		solana.NewAccountMeta(key, false, false),
		solana.NewAccountMeta(key, true, false),
	}, nil)

	err := rt.Execute(ix, nil, HandlerFunc(func(_ solana.PublicKey, a []*AccountInfo, _ []byte) error {
		if a[0] != a[1] {
			t.Error("duplicate metas should resolve to the same AccountInfo")
		}
		if !a[0].IsWritable {
			t.Error("writability should be merged")
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
}
