package main

import (
	"bytes"
	"io"
)

//// The Kernel

// kernel is the boot source: Forth text that builds the rest of the system
// on top of the builtins, and finally enters the REPL by running OK.
type kernel struct {
	// yieldTask starts a task that parks the machine whenever it gets a
	// turn, so that interrupts are serviced while other tasks pause.
	yieldTask bool
}

func (kernel) Name() string { return "kernel.fs" }

func (k kernel) WriteTo(w io.Writer) (n int64, err error) {
	var buf bytes.Buffer
	line := func(parts ...string) {
		if err != nil {
			return
		}
		for _, s := range parts {
			buf.WriteString(s)
		}
		buf.WriteByte('\n')
		var m int64
		m, err = buf.WriteTo(w)
		n += m
	}

	// Until these are defined, there are no comments. The notfound hook takes
	// ( a n f -- a n ) unless it throws; while it is still DROP, an unknown
	// word leaves its name on the stack instead of failing.
	line(`: (   41 parse drop drop ; immediate`)
	line(`: \   10 parse drop drop ; immediate`)
	line(`: #!   10 parse drop drop ; immediate  ( shebang for scripts )`)

	line(`( Stack depths )`)
	line(`: depth ( -- n ) sp@ sp0 - cell/ ;`)
	line(`: fdepth ( -- n ) fp@ fp0 - 4 / ;`)

	line(`( Heap usage )`)
	line(`: remaining ( -- n ) 'heap-start @ 'heap-size @ + 'heap @ - ;`)
	line(`: used ( -- n ) 'heap @ 'heap-start @ - ;`)

	line(`( Quoting )`)
	line(`: ' bl parse 2dup find dup >r -rot r> 0= 'notfound @ execute 2drop ;`)
	line(`: ['] ' aliteral ; immediate`)
	line(`: char bl parse drop c@ ;`)
	line(`: [char] char aliteral ; immediate`)

	// Each control word is a pair: an upper case runtime word, made by giving
	// a created word the code of a primitive, followed immediately by the
	// lower case compiler that shadows it.
	line(`( Control flow )`)
	line(`create BEGIN ' nop @ ' begin !        : begin   ['] begin , here ; immediate`)
	line(`create AGAIN ' branch @ ' again !     : again   ['] again , , ; immediate`)
	line(`create UNTIL ' 0branch @ ' until !    : until   ['] until , , ; immediate`)
	line(`create AHEAD ' branch @ ' ahead !     : ahead   ['] ahead , here 0 , ; immediate`)
	line(`create THEN ' nop @ ' then !          : then   ['] then , here swap ! ; immediate`)
	line(`create IF ' 0branch @ ' if !          : if   ['] if , here 0 , ; immediate`)
	line(`create ELSE ' branch @ ' else !       : else   ['] else , here 0 , swap here swap ! ; immediate`)
	line(`create WHILE ' 0branch @ ' while !    : while   ['] while , here 0 , swap ; immediate`)
	line(`create REPEAT ' branch @ ' repeat !   : repeat   ['] repeat , , here swap ! ; immediate`)
	line(`create AFT ' branch @ ' aft !         : aft   drop ['] aft , here 0 , here swap ; immediate`)

	line(`: recurse   current @ @ , ; immediate`)
	line(`: immediate? ( xt -- f ) >flags 1 and 0= 0= ;`)
	line(`: postpone ' dup immediate? if , else aliteral ['] , , then ; immediate`)

	line(`variable nest-depth`)
	line(`create FOR ' >r @ ' for !         : for   1 nest-depth +! ['] for , here ; immediate`)
	line(`create NEXT ' donext @ ' next !   : next   -1 nest-depth +! ['] next , , ; immediate`)

	// Loop runtimes keep ( limit index ) under their own return address, and
	// find their exit through the cell that follows the call.
	line(`( Counted loops )`)
	line(`variable leaving`)
	line(`: leaving,   here leaving @ , leaving ! ;`)
	line(`: leaving(   leaving @ 0 leaving !   2 nest-depth +! ;`)
	line(`: )leaving   leaving @ swap leaving !  -2 nest-depth +!`)
	line(`             begin dup while dup @ swap here swap ! repeat drop ;`)
	line(`: DO ( n n -- .. ) swap r> -rot >r >r >r ;`)
	line(`: do ( lim s -- ) leaving( postpone DO here ; immediate`)
	line(`: ?DO ( n n -- n n f .. )`)
	line(`   2dup = if 2drop r> @ >r else swap r> cell+ -rot >r >r >r then ;`)
	line(`: ?do ( lim s -- ) leaving( postpone ?DO leaving, here ; immediate`)
	line(`: UNLOOP   r> rdrop rdrop >r ;`)
	line(`: LEAVE   r> rdrop rdrop @ >r ;`)
	line(`: leave   postpone LEAVE leaving, ; immediate`)
	line(`: +LOOP ( n -- ) dup 0< swap r> r> rot + dup r@ < -rot >r >r xor 0=`)
	line(`                 if r> cell+ rdrop rdrop >r else r> @ >r then ;`)
	line(`: +loop ( n -- ) postpone +LOOP , )leaving ; immediate`)
	line(`: LOOP   r> r> 1+ dup r@ < -rot >r >r 0=`)
	line(`         if r> cell+ rdrop rdrop >r else r> @ >r then ;`)
	line(`: loop   postpone LOOP , )leaving ; immediate`)
	line(`create I ' r@ @ ' i !`)
	line(`: J ( -- n ) rp@ 3 cells - @ ;`)
	line(`: K ( -- n ) rp@ 5 cells - @ ;`)

	line(`( Values and deferred words )`)
	line(`: value ( n -- ) constant ;`)
	line(`: value-bind ( xt-val xt )`)
	line(`   >r >body state @ if`)
	line(`     r@ ['] ! = if rdrop ['] doset , , else aliteral r> , then`)
	line(`   else r> execute then ;`)
	line(`: to ( n -- ) ' ['] ! value-bind ; immediate`)
	line(`: +to ( n -- ) ' ['] +! value-bind ; immediate`)
	line(`: defer ( "name" -- ) create 0 , does> @ dup 0= throw execute ;`)
	line(`: is ( xt "name -- ) postpone to ; immediate`)

	// The console goes through deferred words, so that programs may rebind
	// them; KEY lets other tasks run until input is ready.
	line(`defer type   defer key   defer key?   defer bye`)
	line(`' host-type is type   ' host-key? is key?   ' host-bye is bye`)
	line(`: console-key ( -- c ) begin key? 0= while pause repeat host-key ;`)
	line(`' console-key is key`)
	line(`: emit ( n -- ) >r rp@ 1 type rdrop ;`)
	line(`: space bl emit ;   : cr nl emit ;`)
	line(`: abort -1 throw ;`)

	line(`( Numeric output )`)
	line(`variable hld`)
	line(`: pad ( -- a ) here 80 + ;`)
	line(`: digit ( u -- c ) 9 over < 7 and + 48 + ;`)
	line(`: extract ( n base -- n c ) u/mod swap digit ;`)
	line(`: <# ( -- ) pad hld ! ;`)
	line(`: hold ( c -- ) hld @ 1 - dup hld ! c! ;`)
	line(`: # ( u -- u ) base @ extract hold ;`)
	line(`: #s ( u -- 0 ) begin # dup while repeat ;`)
	line(`: sign ( n -- ) 0< if 45 hold then ;`)
	line(`: #> ( w -- b u ) drop hld @ pad over - ;`)
	line(`: str ( n -- b u ) dup >r abs <# #s r> sign #> ;`)
	line(`: hex ( -- ) 16 base ! ;   : octal ( -- ) 8 base ! ;`)
	line(`: decimal ( -- ) 10 base ! ;   : binary ( -- ) 2 base ! ;`)
	line(`: u. ( u -- ) <# #s #> type space ;`)
	line(`: . ( w -- ) base @ 10 xor if u. exit then str type space ;`)
	line(`: ? ( a -- ) @ . ;`)
	line(`: n. ( n -- ) base @ swap decimal <# #s #> type base ! ;`)

	// A compiled string is [$@][length][bytes, zero terminated and padded],
	// and $@ steps its caller over it.
	line(`( Strings )`)
	line(`: parse-quote ( -- a n ) [char] " parse ;`)
	line(`: $place ( a n -- ) for aft dup c@ c, 1+ then next drop ;`)
	line(`: zplace ( a n -- ) $place 0 c, align ;`)
	line(`: $@   r@ dup cell+ swap @ r> dup @ 1+ aligned + cell+ >r ;`)
	line(`: s"   parse-quote state @ if postpone $@ dup , zplace`)
	line(`      else dup here swap >r >r zplace r> r> then ; immediate`)
	line(`: ."   postpone s" state @ if postpone type else type then ; immediate`)
	line(`: z"   postpone s" state @ if postpone drop else drop then ; immediate`)
	line(`: r"   parse-quote state @ if swap aliteral aliteral then ; immediate`)
	line(`: r|   [char] | parse state @ if swap aliteral aliteral then ; immediate`)
	line(`: s>z ( a n -- z ) here >r zplace r> ;`)
	line(`: z>s ( z -- a n ) 0 over begin dup c@ while 1+ swap 1+ swap repeat drop ;`)

	line(`: notfound ( a n n -- )`)
	line(`   if cr ." ERROR: " type ."  NOT FOUND!" cr -1 throw then ;`)
	line(`' notfound 'notfound !`)

	// ACCEPT returns -1 only when input ends before anything was read, so
	// that a last line without a newline is still evaluated.
	line(`( Input )`)
	line(`: raw.s   depth 0 max for aft sp@ r@ cells - @ . then next ;`)
	line(`: eat-line   begin key dup 0< swap nl = or until ;`)
	line(`: accept ( a n -- n ) 0 swap begin 2dup < while key`)
	line(`     dup 0< if 2drop nip dup 0= if drop -1 then exit then`)
	line(`     dup nl = if 2drop nip exit then`)
	line(`     dup 13 = if drop else >r rot r> over c! 1+ -rot swap 1+ swap then`)
	line(`   repeat drop nip eat-line ;`)
	line(`1024 constant input-limit`)
	line(`: tib ( -- a ) 'tib @ ;`)
	line(`create input-buffer   input-limit include-levels * allot`)
	line(`: tib-setup   input-buffer input-depth input-limit * + 'tib ! ;`)
	line(`: refill ( -- f ) tib-setup tib input-limit accept`)
	line(`   dup 0< if drop 0 exit then #tib ! 0 >in ! -1 ;`)

	line(`( REPL )`)
	line(`: prompt   input-depth 0= if ."  ok" cr then ;`)
	line(`: evaluate-buffer   begin >in @ #tib @ < while evaluate1 ?stack repeat ;`)
	line(`: evaluate ( a n -- ) 'tib @ >r #tib @ >r >in @ >r`)
	line(`                      #tib ! 'tib ! 0 >in ! evaluate-buffer`)
	line(`                      r> >in ! r> #tib ! r> 'tib ! ;`)
	line(`: quit    begin ['] evaluate-buffer catch ?dup`)
	line(`          if .throw 0 state ! sp0 sp! fp0 fp! rp0 rp! ." ERROR" cr then`)
	line(`          prompt refill 0= if bye then again ;`)
	line(`: ok   prompt refill 0= if bye then quit ;`)
	line(`: include-lines   begin refill while evaluate-buffer repeat ;`)
	line(`: included ( a n -- ) open-input 'tib @ >r #tib @ >r >in @ >r`)
	line(`     ['] include-lines catch close-input`)
	line(`     r> >in ! r> #tib ! r> 'tib ! throw ;`)
	line(`: include ( "name" -- ) bl parse included ;`)

	line(`( Interpret time conditionals )`)
	line(`: DEFINED? ( "name" -- xt|0 )`)
	line(`   bl parse find state @ if aliteral then ; immediate`)
	line(`defer [SKIP]`)
	line(`: [THEN] ;   : [ELSE] [SKIP] ;   : [IF] 0= if [SKIP] then ;`)
	line(`: [SKIP]' 0 begin`)
	line(`    bl parse dup 0= if 2drop refill 0= if drop exit then 0 else find then`)
	line(`    dup if`)
	line(`      dup ['] [IF] = if swap 1+ swap then`)
	line(`      dup ['] [ELSE] = if swap dup 0 <= if 2drop exit then swap then`)
	line(`      dup ['] [THEN] = if swap 1- dup 0< if 2drop exit then swap then`)
	line(`    then drop again ;`)
	line(`' [SKIP]' is [SKIP]`)

	// A vocabulary body is [head][0][link to previous vocabulary]. A new
	// vocabulary's head starts out pointing two cells into its parent's
	// body: read as an xt, that is a nameless entry whose link is the
	// parent's head, so the chain runs on into the parent.
	line(`( Vocabularies )`)
	line(`variable last-vocabulary`)
	line(`: vocabulary ( "name" )`)
	line(`  create current @ 2 cells + , 0 , last-vocabulary @ ,`)
	line(`  current @ @ last-vocabulary !`)
	line(`  does> context ! ;`)
	line(`: definitions   context @ current ! ;`)
	line(`vocabulary FORTH`)
	line(`' forth >body @ >link ' forth >body !`)
	line(`forth definitions`)
	line(`' forth >body 'forth-wordlist !`)

	line(`: xt-find& ( xt -- xt& ) context @ begin 2dup @ <> while @ >link& repeat nip ;`)
	line(`: xt-hide ( xt -- ) xt-find& dup @ >link swap ! ;`)
	line(`8 constant BUILTIN_MARK`)
	line(`: xt-transfer ( xt --  ) dup >flags BUILTIN_MARK and if drop exit then`)
	line(`  dup xt-hide   current @ @ over >link& !   current @ ! ;`)
	line(`: transfer ( "name" ) ' xt-transfer ;`)
	line(`: }transfer ;`)
	line(`: transfer{ begin ' dup ['] }transfer = if drop exit then xt-transfer again ;`)

	line(`: only   forth 0 context cell+ ! ;`)
	line(`: voc-stack-end ( -- a ) context begin dup @ while cell+ repeat ;`)
	line(`: also   voc-stack-end context - 16 cells >= if -49 throw then`)
	line(`        context context cell+ voc-stack-end over - 2 cells + cmove> ;`)
	line(`: previous`)
	line(`  voc-stack-end context cell+ = if -50 throw then`)
	line(`  context cell+ context voc-stack-end over - cell+ cmove ;`)
	line(`: sealed   0 last-vocabulary @ >body ! ;`)

	line(`vocabulary internals   internals definitions`)
	line(`variable scope   scope context cell - !`)
	line(`transfer{`)
	line(`  xt-find& xt-hide xt-transfer`)
	line(`  voc-stack-end last-vocabulary notfound`)
	line(`  immediate? input-buffer eat-line console-key`)
	line(`  evaluate-buffer value-bind`)
	line(`  leaving( )leaving leaving leaving,`)
	line(`  parse-quote digit $@ raw.s`)
	line(`  tib-setup input-limit include-lines`)
	line(`  [SKIP] [SKIP]' $place zplace BUILTIN_MARK`)
	line(`}transfer`)

	line(`vocabulary internalized  internalized definitions`)
	line(`: cleave   ' >link xt-transfer ;`)
	line(`cleave begin   cleave again   cleave until`)
	line(`cleave ahead   cleave then    cleave if`)
	line(`cleave else    cleave while   cleave repeat`)
	line(`cleave aft     cleave for     cleave next`)
	line(`cleave do      cleave ?do     cleave +loop`)
	line(`cleave loop    cleave leave`)
	line(`forth definitions`)

	line(`( Floating point )`)
	line(`: sf, ( r -- ) here sf! sfloat allot ;`)
	line(`: fliteral   afliteral ; immediate`)
	line(`: fconstant ( r "name" ) create sf, align does> sf@ ;`)
	line(`: fvariable ( "name" ) create sfloat allot align ;`)
	line(`6 value precision`)
	line(`: set-precision ( n -- ) to precision ;`)
	line(`internals definitions`)
	line(`: #f+s ( r -- ) fdup precision for aft 10e f* then next`)
	line(`                precision for aft fdup f>s 10 mod [char] 0 + hold 0.1e f* then next`)
	line(`                [char] . hold fdrop f>s #s ;`)
	line(`forth definitions internals`)
	line(`: #fs ( r -- ) fdup f0< if fnegate #f+s [char] - hold else #f+s then ;`)
	line(`: f. ( r -- ) <# #fs #> type space ;`)
	line(`: f.s   ." <" fdepth n. ." > "`)
	line(`        fdepth 0 max for aft fp@ r@ sfloats - sf@ f. then next ;`)
	line(`forth definitions`)

	line(`( C style structures )`)
	line(`vocabulary structures   structures definitions`)
	line(`variable last-align`)
	line(`: typer ( align sz "name" ) create , ,`)
	line(`                            does> dup cell+ @ last-align ! @ ;`)
	line(`1 1 typer i8`)
	line(`2 2 typer i16`)
	line(`4 4 typer i32`)
	line(`cell 8 typer i64`)
	line(`cell cell typer ptr`)
	line(`variable last-struct`)
	line(`: struct ( "name" ) 1 0 typer latestxt >body last-struct ! ;`)
	line(`: align-by ( a n -- a ) 1- dup >r + r> invert and ;`)
	line(`: struct-align ( n -- )`)
	line(`  dup last-struct @ cell+ @ max last-struct @ cell+ !`)
	line(`  last-struct @ @ swap align-by last-struct @ ! ;`)
	line(`: field ( n "name" )`)
	line(`  last-align @ struct-align`)
	line(`  create last-struct @ @ , last-struct @ +!`)
	line(`  does> @ + ;`)
	line(`forth definitions`)

	line(`( Utilities )`)
	line(`: assert ( f -- ) 0= throw ;`)
	line(`: spaces ( n -- ) for aft space then next ;`)
	line(`internals definitions`)
	line(`: dump-line ( a -- ) cr <# #s #> 20 over - >r type r> spaces ;`)
	line(`forth definitions internals`)
	line(`: dump ( a n -- )`)
	line(`   over 15 and if over dump-line over 15 and 3 * spaces then`)
	line(`   for aft`)
	line(`     dup 15 and 0= if dup dump-line then`)
	line(`     dup c@ <# # #s #> type space 1+`)
	line(`   then next drop cr ;`)
	line(`: forget ( "name" ) ' dup >link current @ !  >name drop here - allot ;`)

	line(`internals definitions`)
	line(`1 constant IMMEDIATE_MARK`)
	line(`2 constant SMUDGE`)
	line(`4 constant BUILTIN_FORK`)
	line(`16 constant NONAMED`)
	line(`32 constant +TAB`)
	line(`64 constant -TAB`)
	line(`128 constant ARGS_MARK`)
	line(`: mem= ( a a n -- f)`)
	line(`   for aft 2dup c@ swap c@ <> if 2drop rdrop 0 exit then 1+ swap 1+ then next 2drop -1 ;`)
	line(`forth definitions also internals`)
	line(`: :noname ( -- xt ) align current @ @ , NONAMED SMUDGE or ,`)
	line(`                    here dup current @ ! dup 'latestxt ! ['] mem= @ , postpone ] ;`)
	line(`: str= ( a n a n -- f) >r swap r@ <> if rdrop 2drop 0 exit then r> mem= ;`)
	line(`: startswith? ( a n a n -- f ) >r swap r@ < if rdrop 2drop 0 exit then r> mem= ;`)
	line(`: .s   ." <" depth n. ." > " raw.s cr ;`)
	line(`only forth definitions`)

	line(`( Indentation hints for SEE )`)
	line(`internals internalized definitions`)
	line(`: flags'or! ( n -- ) ' >flags& dup >r c@ or r> c! ;`)
	line(`+TAB flags'or! BEGIN`)
	line(`-TAB flags'or! AGAIN`)
	line(`-TAB flags'or! UNTIL`)
	line(`+TAB flags'or! AHEAD`)
	line(`-TAB flags'or! THEN`)
	line(`+TAB flags'or! IF`)
	line(`+TAB -TAB or flags'or! ELSE`)
	line(`+TAB -TAB or flags'or! WHILE`)
	line(`-TAB flags'or! REPEAT`)
	line(`+TAB flags'or! AFT`)
	line(`+TAB flags'or! FOR`)
	line(`-TAB flags'or! NEXT`)
	line(`+TAB flags'or! DO`)
	line(`ARGS_MARK +TAB or flags'or! ?DO`)
	line(`ARGS_MARK -TAB or flags'or! +LOOP`)
	line(`ARGS_MARK -TAB or flags'or! LOOP`)
	line(`ARGS_MARK flags'or! LEAVE`)
	line(`forth definitions`)

	line(`( SEE and ORDER )`)
	line(`internals definitions`)
	line(`variable indent`)
	line(`: see. ( xt -- ) >name type space ;`)
	line(`: icr   cr indent @ 0 max 4* spaces ;`)
	line(`: indent+! ( n -- ) indent +! icr ;`)
	line(`: see-one ( xt -- xt+1 )`)
	line(`   dup cell+ swap @`)
	line(`   dup ['] DOLIT = if drop dup @ . cell+ exit then`)
	line(`   dup ['] DOSET = if drop ." TO " dup @ cell - see. cell+ icr exit then`)
	line(`   dup ['] DOFLIT = if drop dup sf@ <# [char] e hold #fs #> type space cell+ exit then`)
	line(`   dup ['] $@ = if drop ['] s" see.`)
	line(`                   dup @ dup >r >r dup cell+ r> type cell+ r> 1+ aligned +`)
	line(`                   [char] " emit space exit then`)
	line(`   dup >flags -TAB AND if -1 indent+! then`)
	line(`   dup see.`)
	line(`   dup >flags +TAB AND if`)
	line(`     1 indent+!`)
	line(`   else`)
	line(`     dup >flags -TAB AND if icr then`)
	line(`   then`)
	line(`   dup ['] ! = if icr then`)
	line(`   dup ['] +! = if icr then`)
	line(`   dup  @ ['] BRANCH @ =`)
	line(`   over @ ['] 0BRANCH @ = or`)
	line(`   over @ ['] DONEXT @ = or`)
	line(`   over >flags ARGS_MARK and or`)
	line(`       if swap cell+ swap then`)
	line(`   drop ;`)
	line(`: see-loop   dup >body swap >params 1- cells over +`)
	line(`             begin 2dup < while swap see-one swap repeat 2drop ;`)
	line(`: ?see-flags   >flags IMMEDIATE_MARK and if ." IMMEDIATE " then ;`)
	line(`: see-xt ( xt -- )`)
	line(`  dup @ ['] see-loop @ = if`)
	line(`    ['] : see.  dup see.`)
	line(`    1 indent ! icr`)
	line(`    dup see-loop`)
	line(`    -1 indent+! ['] ; see.`)
	line(`    ?see-flags cr`)
	line(`    exit`)
	line(`  then`)
	line(`  dup >flags BUILTIN_FORK and if ." Built-in-fork: " see. exit then`)
	line(`  dup >flags BUILTIN_MARK and if ." Built-in: " see. cr exit then`)
	line(`  dup @ ['] input-buffer @ = if ." CREATE: " see. cr exit then`)
	line(`  dup @ ['] nest-depth @ = if ." VARIABLE: " see. cr exit then`)
	line(`  dup @ ['] input-limit @ = if ." CONSTANT: " see. cr exit then`)
	line(`  dup @ ['] type @ = if ." DOES>: " see. cr exit then`)
	line(`  ." Unsupported: " see. cr ;`)
	line(`: nonvoc? ( xt -- f )`)
	line(`  dup 0= if exit then dup >name nip swap >flags NONAMED BUILTIN_FORK or and or ;`)
	line(`: voc. ( voc -- ) 2 cells - see. ;`)
	line(`: vocs. ( voc -- ) dup voc. @ begin dup while`)
	line(`    dup nonvoc? 0= if ." >> " dup 2 cells - voc. then`)
	line(`    >link`)
	line(`  repeat drop cr ;`)
	line(`forth definitions also internals`)
	line(`: see   ' see-xt ;`)
	line(`: order   context begin dup @ while dup @ vocs. cell+ repeat drop ;`)
	line(`only forth definitions`)

	// Builtins are listed from the table itself: each three cell entry keeps
	// its name where a link would be, and its vocabulary where params would.
	line(`( WORDS and VLIST )`)
	line(`internals definitions`)
	line(`70 value line-width`)
	line(`0 value line-pos`)
	line(`: onlines ( xt -- xt )`)
	line(`   line-pos line-width > if cr 0 to line-pos then`)
	line(`   dup >name nip 1+ line-pos + to line-pos ;`)
	line(`: vins. ( voc -- )`)
	line(`  >r 'builtins begin dup >link while`)
	line(`    dup >params r@ = if dup onlines see. then`)
	line(`    3 cells +`)
	line(`  repeat drop rdrop ;`)
	line(`: ins. ( xt -- ) cell+ @ vins. ;`)
	line(`: ?ins. ( xt -- xt ) dup >flags BUILTIN_FORK and if dup ins. then ;`)
	line(`forth definitions also internals`)
	line(`: vlist   0 to line-pos context @ @`)
	line(`          begin dup nonvoc? while ?ins. dup onlines see. >link repeat drop cr ;`)
	line(`: words   0 to line-pos context @ @`)
	line(`          begin dup while ?ins. dup onlines see. >link repeat drop cr ;`)
	line(`only forth definitions`)

	line(`( CASE )`)
	line(`internals definitions`)
	line(`variable cases`)
	line(`forth definitions internals`)
	line(`: CASE ( n -- ) cases @  0 cases ! ; immediate`)
	line(`: ENDCASE   postpone drop cases @ for aft postpone then then next`)
	line(`            cases ! ; immediate`)
	line(`: OF ( n -- ) postpone over postpone = postpone if postpone drop ; immediate`)
	line(`: ENDOF   1 cases +! postpone else ; immediate`)
	line(`forth definitions`)

	// The main task adopts the stacks that are already running, so its xt
	// and stack sizes go unused.
	line(`( Cooperative tasks )`)
	line(`vocabulary tasks   tasks definitions also internals`)
	line(`: .tasks   task-list @ begin dup 2 cells - see. @ dup task-list @ = until drop ;`)
	line(`forth definitions tasks also internals`)
	line(`: ms ( n -- ) ms-ticks >r begin pause ms-ticks r@ - over >= until rdrop drop ;`)
	line(`tasks definitions`)
	line(`' nop 0 0 task main-task   main-task start-task`)
	if k.yieldTask {
		line(`: yield-step   raw-yield yield ;`)
		line(`' yield-step 100 100 task yield-task   yield-task start-task`)
	}
	line(`only forth definitions`)

	// The saving base reserves room for an image header; COLD, if set, runs
	// after an image is restored.
	line(`( Images )`)
	line(`internals definitions`)
	line(`: 'cold ( -- a ) 'saving-base @ 2 cells + ;`)
	line(`: setup-saving-base   here 'saving-base ! 22 cells allot 0 'cold ! ;`)
	line(`: default-remember-filename   s" myforth" ;`)
	line(`forth definitions internals`)
	line(`defer remember-filename`)
	line(`' default-remember-filename is remember-filename`)
	line(`: save ( "name" -- ) bl parse save-name ;`)
	line(`: restore ( "name" -- ) bl parse restore-name ;`)
	line(`: remember   remember-filename save-name ;`)
	line(`: startup: ( "name" ) ' 'cold ! remember ;`)
	line(`: revive   remember-filename restore-name ;`)
	line(`: reset   remember-filename delete-file throw ;`)

	// Hiding the internal builtins and reserving the saving base come last;
	// everything defined after the saving base is what an image holds.
	line(`internals definitions`)
	line(`transfer internals-builtins`)
	line(`setup-saving-base`)
	line(`only forth definitions`)
	line(`ok`)

	return n, err
}
